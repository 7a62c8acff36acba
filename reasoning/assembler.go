// Package reasoning reconstructs model reasoning traces from the reasoning
// event channel: a phase bracket (start/end), streamed reasoning messages in
// both triple and chunk form, and opaque provider-encrypted payloads.
package reasoning

import (
	"sync"

	"goa.design/agui/events"
)

type (
	// Trace is one reconstructed reasoning message. Exactly one of Content or
	// EncryptedValue is set: encrypted payloads replace rather than append.
	Trace struct {
		MessageID string
		Content   string
		// EncryptedValue is the opaque base64 payload for provider-encrypted
		// reasoning. Never concatenated.
		EncryptedValue string
	}

	// Assembler accumulates reasoning state. It mirrors the text message
	// assembler but additionally tracks whether a reasoning phase is open. It
	// is safe for concurrent use.
	Assembler struct {
		mu       sync.Mutex
		open     bool
		inflight map[string]*building
		traces   []Trace
		seen     map[string]struct{}
	}

	building struct {
		id      string
		content []byte
	}
)

// New returns an empty assembler.
func New() *Assembler {
	return &Assembler{
		inflight: make(map[string]*building),
		seen:     make(map[string]struct{}),
	}
}

// StartPhase opens the reasoning phase. Opening an already-open phase is an
// ordering violation.
func (a *Assembler) StartPhase() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.open {
		return &events.SequenceError{EventType: events.TypeReasoningStart, Subject: "phase", Reason: "reasoning phase already open"}
	}
	a.open = true
	return nil
}

// EndPhase closes the reasoning phase. Closing a phase that never opened is
// an ordering violation.
func (a *Assembler) EndPhase() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return &events.SequenceError{EventType: events.TypeReasoningEnd, Subject: "phase", Reason: "no reasoning phase open"}
	}
	a.open = false
	return nil
}

// PhaseOpen reports whether a reasoning phase is currently open.
func (a *Assembler) PhaseOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open
}

// StartMessage opens a streaming reasoning message.
func (a *Assembler) StartMessage(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.inflight[id]; ok {
		return &events.SequenceError{EventType: events.TypeReasoningMessageStart, Subject: id, Reason: "reasoning message already started"}
	}
	if _, ok := a.seen[id]; ok {
		return &events.SequenceError{EventType: events.TypeReasoningMessageStart, Subject: id, Reason: "reasoning message already finalized"}
	}
	a.inflight[id] = &building{id: id}
	return nil
}

// AppendMessage adds a content delta to the open reasoning message.
func (a *Assembler) AppendMessage(id, delta string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.inflight[id]
	if !ok {
		reason := "reasoning message never started"
		if _, done := a.seen[id]; done {
			reason = "reasoning message already finalized"
		}
		return &events.SequenceError{EventType: events.TypeReasoningMessageContent, Subject: id, Reason: reason}
	}
	b.content = append(b.content, delta...)
	return nil
}

// EndMessage finalizes the open reasoning message.
func (a *Assembler) EndMessage(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.inflight[id]
	if !ok {
		reason := "reasoning message never started"
		if _, done := a.seen[id]; done {
			reason = "reasoning message already finalized"
		}
		return &events.SequenceError{EventType: events.TypeReasoningMessageEnd, Subject: id, Reason: reason}
	}
	a.finalize(b)
	return nil
}

// Chunk handles a self-contained reasoning fragment, mirroring the text
// message chunk semantics.
func (a *Assembler) Chunk(id, delta string) error {
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
		return &events.SequenceError{EventType: events.TypeReasoningMessageChunk, Subject: id, Reason: "reasoning message already finalized"}
	}
	a.traces = append(a.traces, Trace{MessageID: id, Content: delta})
	a.seen[id] = struct{}{}
	return nil
}

// EncryptedValue records an opaque encrypted reasoning payload. A repeated id
// replaces the previous payload rather than appending; an empty id is
// assigned a fresh one.
func (a *Assembler) EncryptedValue(id, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == "" {
		id = events.NewMessageID()
	}
	for i := range a.traces {
		if a.traces[i].MessageID == id && a.traces[i].EncryptedValue != "" {
			a.traces[i].EncryptedValue = value
			return
		}
	}
	a.traces = append(a.traces, Trace{MessageID: id, EncryptedValue: value})
	a.seen[id] = struct{}{}
}

// Traces returns the finalized reasoning traces in completion order.
func (a *Assembler) Traces() []Trace {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Trace, len(a.traces))
	copy(out, a.traces)
	return out
}

// Open returns the number of reasoning message streams still in flight.
func (a *Assembler) Open() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inflight)
}

// DiscardOpen drops in-flight reasoning streams without finalizing them.
func (a *Assembler) DiscardOpen() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight = make(map[string]*building)
}

// finalize moves an open buffer to the trace list. Callers hold mu.
func (a *Assembler) finalize(b *building) {
	delete(a.inflight, b.id)
	a.seen[b.id] = struct{}{}
	a.traces = append(a.traces, Trace{MessageID: b.id, Content: string(b.content)})
}
