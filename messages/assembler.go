// Package messages reconstructs the conversation transcript from streaming
// text message events. It supports both the explicit START/CONTENT/END triple
// and the self-contained CHUNK form, tolerates interleaved streams for
// distinct message ids, and keeps a strict happened-before order: finalized
// messages appear in the order their streams opened, not the order they
// closed.
package messages

import (
	"sort"
	"sync"

	"goa.design/agui/events"
)

type (
	// Assembler accumulates text message streams and exposes the finalized
	// transcript. It is safe for concurrent use.
	Assembler struct {
		mu sync.Mutex
		// inflight maps message id to its open buffer.
		inflight map[string]*building
		// entries holds finalized messages sorted by stream-open sequence.
		entries []entry
		// seen records every id that ever reached the finalized transcript so
		// late deltas for closed streams are rejected rather than resurrected.
		seen map[string]struct{}
		// nextSeq numbers streams in arrival order.
		nextSeq int
	}

	building struct {
		seq     int
		id      string
		role    string
		content []byte
		// calls staged by AttachToolCall while the stream is still open; they
		// ride along when the message finalizes.
		calls []events.ToolCall
	}

	entry struct {
		seq int
		msg events.Message
	}
)

// New returns an empty assembler.
func New() *Assembler {
	return &Assembler{
		inflight: make(map[string]*building),
		seen:     make(map[string]struct{}),
	}
}

// Start opens a streaming message. An empty role defaults to assistant.
// Starting an id that is already open or already finalized is an ordering
// violation.
func (a *Assembler) Start(id, role string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.inflight[id]; ok {
		return &events.SequenceError{EventType: events.TypeTextMessageStart, Subject: id, Reason: "message already started"}
	}
	if _, ok := a.seen[id]; ok {
		return &events.SequenceError{EventType: events.TypeTextMessageStart, Subject: id, Reason: "message already finalized"}
	}
	if role == "" {
		role = events.RoleAssistant
	}
	a.inflight[id] = &building{seq: a.nextSeq, id: id, role: role}
	a.nextSeq++
	return nil
}

// Append adds a content delta to the open message. Deltas for unknown or
// finalized ids are ordering violations; the transcript is left untouched.
func (a *Assembler) Append(id, delta string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.inflight[id]
	if !ok {
		reason := "message never started"
		if _, done := a.seen[id]; done {
			reason = "message already finalized"
		}
		return &events.SequenceError{EventType: events.TypeTextMessageContent, Subject: id, Reason: reason}
	}
	b.content = append(b.content, delta...)
	return nil
}

// End finalizes the open message, moving it to the transcript at the position
// its stream opened.
func (a *Assembler) End(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.inflight[id]
	if !ok {
		reason := "message never started"
		if _, done := a.seen[id]; done {
			reason = "message already finalized"
		}
		return &events.SequenceError{EventType: events.TypeTextMessageEnd, Subject: id, Reason: reason}
	}
	a.finalize(b)
	return nil
}

// Chunk handles a self-contained message fragment. A chunk for an unknown id
// creates and finalizes the message in one step; a chunk for an open stream
// appends its delta and finalizes the stream; a chunk for a finalized id is
// an ordering violation. An empty id is assigned a fresh one.
func (a *Assembler) Chunk(id, role, delta string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == "" {
		id = events.NewMessageID()
	}
	if b, ok := a.inflight[id]; ok {
		b.content = append(b.content, delta...)
		a.finalize(b)
		return nil
	}
	if _, done := a.seen[id]; done {
		return &events.SequenceError{EventType: events.TypeTextMessageChunk, Subject: id, Reason: "message already finalized"}
	}
	if role == "" {
		role = events.RoleAssistant
	}
	b := &building{seq: a.nextSeq, id: id, role: role, content: []byte(delta)}
	a.nextSeq++
	a.finalize(b)
	return nil
}

// AddFinal appends an externally built message, such as a tool result, to the
// transcript. The message takes the next stream position.
func (a *Assembler) AddFinal(msg events.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.insert(entry{seq: a.nextSeq, msg: msg.Clone()})
	a.nextSeq++
	a.seen[msg.ID] = struct{}{}
}

// AttachToolCall records a completed tool invocation on the message it was
// requested by. The message may still be streaming or already finalized. It
// reports whether the parent message was found.
func (a *Assembler) AttachToolCall(messageID string, call events.ToolCall) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.inflight[messageID]; ok {
		b.calls = append(b.calls, call)
		return true
	}
	for i := range a.entries {
		if a.entries[i].msg.ID == messageID {
			a.entries[i].msg.ToolCalls = append(a.entries[i].msg.ToolCalls, call)
			return true
		}
	}
	return false
}

// ReplaceAll installs a full transcript snapshot, superseding every message
// assembled so far. Open streams are discarded: a snapshot is authoritative.
func (a *Assembler) ReplaceAll(msgs []events.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight = make(map[string]*building)
	a.seen = make(map[string]struct{})
	a.entries = a.entries[:0]
	a.nextSeq = 0
	for _, m := range msgs {
		a.insert(entry{seq: a.nextSeq, msg: m.Clone()})
		a.nextSeq++
		a.seen[m.ID] = struct{}{}
	}
}

// Messages returns the finalized transcript in stream-open order. The result
// is a deep copy; mutating it does not affect the assembler.
func (a *Assembler) Messages() []events.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]events.Message, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.msg.Clone()
	}
	return out
}

// Open returns the number of streams that have started but not yet ended.
func (a *Assembler) Open() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inflight)
}

// DiscardOpen drops every in-flight stream without finalizing it. Used when a
// run aborts and partial output must not leak into the transcript.
func (a *Assembler) DiscardOpen() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight = make(map[string]*building)
}

// finalize moves an open buffer into the sorted transcript. Callers hold mu.
func (a *Assembler) finalize(b *building) {
	delete(a.inflight, b.id)
	a.seen[b.id] = struct{}{}
	a.insert(entry{seq: b.seq, msg: events.Message{ID: b.id, Role: b.role, Content: string(b.content), ToolCalls: b.calls}})
}

// insert places e keeping entries sorted by seq. Callers hold mu.
func (a *Assembler) insert(e entry) {
	i := sort.Search(len(a.entries), func(i int) bool { return a.entries[i].seq > e.seq })
	a.entries = append(a.entries, entry{})
	copy(a.entries[i+1:], a.entries[i:])
	a.entries[i] = e
}
