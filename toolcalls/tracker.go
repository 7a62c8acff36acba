// Package toolcalls tracks tool invocation lifecycles streamed over the tool
// call event channel: argument accumulation, completion, results, and the
// approval gate for tools that require a human decision before execution.
package toolcalls

import (
	"fmt"
	"sync"

	"goa.design/agui/events"
)

// Status is a tool call's lifecycle phase. Transitions only move forward;
// a result may arrive from any phase because some backends skip the explicit
// end marker.
type Status string

const (
	// StatusRequested means the call was announced but no arguments have
	// streamed yet.
	StatusRequested Status = "requested"
	// StatusStreaming means argument deltas are accumulating.
	StatusStreaming Status = "streaming"
	// StatusEnded means the argument stream closed and the call awaits its
	// result (or an approval decision).
	StatusEnded Status = "ended"
	// StatusResulted means the tool produced its result.
	StatusResulted Status = "resulted"
)

type (
	// Call is the tracked state of one tool invocation. Args holds the raw
	// streamed argument text; it is never parsed at this layer.
	Call struct {
		ID              string
		Name            string
		ParentMessageID string
		Args            string
		Status          Status
		// Result holds the tool output once Status is StatusResulted.
		Result string
		// ResultMessageID is the id of the tool message carrying the result.
		ResultMessageID string
	}

	// Tracker accumulates tool call state from the event stream. It is safe
	// for concurrent use.
	Tracker struct {
		mu    sync.Mutex
		calls map[string]*call
		// order preserves announcement order for listings.
		order []string
		// approvalRequired names tools whose calls park in the pending set
		// when their argument stream closes.
		approvalRequired map[string]struct{}
		// pending holds call ids awaiting an approval decision.
		pending map[string]struct{}
	}

	call struct {
		Call
		args []byte
	}
)

// New returns an empty tracker. approvalTools names the tools whose completed
// calls require an explicit Approve or Reject before they are considered
// actionable.
func New(approvalTools []string) *Tracker {
	req := make(map[string]struct{}, len(approvalTools))
	for _, name := range approvalTools {
		req[name] = struct{}{}
	}
	return &Tracker{
		calls:            make(map[string]*call),
		approvalRequired: req,
		pending:          make(map[string]struct{}),
	}
}

// Start registers a new call. Restarting a known id is an ordering violation.
func (t *Tracker) Start(id, name, parentMessageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.calls[id]; ok {
		return &events.SequenceError{EventType: events.TypeToolCallStart, Subject: id, Reason: "tool call already started"}
	}
	t.add(&call{Call: Call{ID: id, Name: name, ParentMessageID: parentMessageID, Status: StatusRequested}})
	return nil
}

// Args appends an argument delta. The call must be in the requested or
// streaming phase.
func (t *Tracker) Args(id, delta string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		return &events.SequenceError{EventType: events.TypeToolCallArgs, Subject: id, Reason: "tool call never started"}
	}
	if c.Status != StatusRequested && c.Status != StatusStreaming {
		return &events.SequenceError{EventType: events.TypeToolCallArgs, Subject: id, Reason: fmt.Sprintf("argument delta after %s", c.Status)}
	}
	c.args = append(c.args, delta...)
	c.Status = StatusStreaming
	return nil
}

// End closes the argument stream. If the call's tool requires approval the
// call joins the pending set. It returns the finalized call so callers can
// attach it to its parent message.
func (t *Tracker) End(id string) (Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		return Call{}, &events.SequenceError{EventType: events.TypeToolCallEnd, Subject: id, Reason: "tool call never started"}
	}
	if c.Status == StatusEnded || c.Status == StatusResulted {
		return Call{}, &events.SequenceError{EventType: events.TypeToolCallEnd, Subject: id, Reason: fmt.Sprintf("end after %s", c.Status)}
	}
	t.end(c)
	return c.Call, nil
}

// Chunk handles a self-contained tool call fragment. Unknown ids are created
// and immediately ended; ids still streaming absorb the delta and end. A
// chunk for an ended or resulted call is an ordering violation. The returned
// call is the finalized state.
func (t *Tracker) Chunk(id, name, parentMessageID, delta string) (Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == "" {
		id = events.NewToolCallID()
	}
	c, ok := t.calls[id]
	if !ok {
		c = &call{Call: Call{ID: id, Name: name, ParentMessageID: parentMessageID, Status: StatusRequested}, args: []byte(delta)}
		t.add(c)
		t.end(c)
		return c.Call, nil
	}
	if c.Status == StatusEnded || c.Status == StatusResulted {
		return Call{}, &events.SequenceError{EventType: events.TypeToolCallChunk, Subject: id, Reason: fmt.Sprintf("chunk after %s", c.Status)}
	}
	c.args = append(c.args, delta...)
	if name != "" {
		c.Name = name
	}
	t.end(c)
	return c.Call, nil
}

// Result records the tool output. Results are accepted from any phase, even
// for ids never announced, because result delivery may race or skip the end
// marker. A second result for the same id is an ordering violation.
func (t *Tracker) Result(id, messageID, content string) (Call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		c = &call{Call: Call{ID: id, Status: StatusRequested}}
		t.add(c)
	}
	if c.Status == StatusResulted {
		return Call{}, &events.SequenceError{EventType: events.TypeToolCallResult, Subject: id, Reason: "result already recorded"}
	}
	c.Args = string(c.args)
	c.Status = StatusResulted
	c.Result = content
	c.ResultMessageID = messageID
	delete(t.pending, id)
	return c.Call, nil
}

// Approve releases a pending call. It fails when the id is not awaiting a
// decision.
func (t *Tracker) Approve(id string) error {
	return t.decide(id)
}

// Reject declines a pending call. The call stays ended; the backend is
// expected to surface the rejection as a tool result.
func (t *Tracker) Reject(id string) error {
	return t.decide(id)
}

func (t *Tracker) decide(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; !ok {
		return fmt.Errorf("tool call %q is not awaiting approval", id)
	}
	delete(t.pending, id)
	return nil
}

// Pending returns the ids awaiting an approval decision in announcement order.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.pending))
	for _, id := range t.order {
		if _, ok := t.pending[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Get returns the tracked state for id.
func (t *Tracker) Get(id string) (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.calls[id]
	if !ok {
		return Call{}, false
	}
	cp := c.Call
	cp.Args = string(c.args)
	return cp, true
}

// Calls returns every tracked call in announcement order.
func (t *Tracker) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, 0, len(t.order))
	for _, id := range t.order {
		c := t.calls[id]
		cp := c.Call
		if c.Status != StatusResulted {
			cp.Args = string(c.args)
		}
		out = append(out, cp)
	}
	return out
}

// add registers a call. Callers hold mu.
func (t *Tracker) add(c *call) {
	t.calls[c.ID] = c
	t.order = append(t.order, c.ID)
}

// end transitions a call to StatusEnded and parks it in the pending set when
// its tool requires approval. Callers hold mu.
func (t *Tracker) end(c *call) {
	c.Args = string(c.args)
	c.Status = StatusEnded
	if _, ok := t.approvalRequired[c.Name]; ok {
		t.pending[c.ID] = struct{}{}
	}
}
