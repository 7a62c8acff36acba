// Package dispatch is the engine's front door: it routes every protocol
// event through the middleware chain into the per-channel processors (run
// lifecycle, message assembly, tool call tracking, state sync, reasoning) and
// publishes an immutable aggregate snapshot to subscribers after each event.
//
// Faults never stop the engine. Malformed, out-of-order, or otherwise
// unprocessable events are dropped, recorded on the aggregate, and logged;
// the stream keeps flowing.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"goa.design/agui/config"
	"goa.design/agui/events"
	"goa.design/agui/messages"
	"goa.design/agui/patch"
	"goa.design/agui/reasoning"
	"goa.design/agui/run"
	"goa.design/agui/telemetry"
	"goa.design/agui/toolcalls"
)

type (
	// Dispatcher consumes protocol events and maintains the aggregate. It is
	// safe for concurrent use; events are applied one at a time in arrival
	// order.
	Dispatcher struct {
		cfg     config.Options
		logger  telemetry.Logger
		metrics telemetry.Metrics

		// mu serializes event application and aggregate reads.
		mu         sync.Mutex
		machine    *run.Machine
		msgs       *messages.Assembler
		calls      *toolcalls.Tracker
		reason     *reasoning.Assembler
		state      any
		activities map[string]map[string]any
		faults     []Fault
		aborted    bool

		mwMu       sync.RWMutex
		middleware []Middleware

		bus *bus
	}

	// Middleware observes or rewrites events before they reach the aggregate.
	// Calling next forwards the (possibly replaced) event down the chain; not
	// calling it drops the event without recording a fault.
	Middleware func(evt events.Event, next func(events.Event))

	// Option customizes a Dispatcher.
	Option func(*Dispatcher)
)

// WithLogger sets the logger. Defaults to the no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the metrics recorder. Defaults to the no-op recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithOptions sets the engine settings. Defaults to config.Default.
func WithOptions(cfg config.Options) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

// New constructs a dispatcher with an empty aggregate.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:     config.Default(),
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
		bus:     newBus(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.machine = run.NewMachine()
	d.msgs = messages.New()
	d.calls = toolcalls.New(d.cfg.ApprovalTools)
	d.reason = reasoning.New()
	d.activities = make(map[string]map[string]any)
	return d
}

// Use appends a middleware to the chain. Middleware run in Use order around
// every subsequently dispatched event.
func (d *Dispatcher) Use(mw Middleware) {
	d.mwMu.Lock()
	d.middleware = append(d.middleware, mw)
	d.mwMu.Unlock()
}

// Subscribe registers a subscriber for aggregate snapshots. One snapshot is
// published after every dispatched event, in registration order.
func (d *Dispatcher) Subscribe(sub Subscriber) (Subscription, error) {
	return d.bus.register(sub)
}

// DispatchRaw validates and decodes a wire event, then dispatches it. Decode
// failures are recorded as schema faults and published; they are never fatal.
func (d *Dispatcher) DispatchRaw(ctx context.Context, data []byte) {
	evt, err := events.Decode(data)
	if err != nil {
		d.mu.Lock()
		d.recordFault(ctx, FaultSchema, "", err)
		snap := d.snapshotLocked()
		d.mu.Unlock()
		d.publish(ctx, snap)
		return
	}
	d.Dispatch(ctx, evt)
}

// Dispatch applies one event to the aggregate and publishes the resulting
// snapshot. Processing faults are recorded on the aggregate rather than
// returned: a malformed stream degrades, it does not crash.
func (d *Dispatcher) Dispatch(ctx context.Context, evt events.Event) {
	if evt == nil {
		return
	}
	d.mwMu.RLock()
	chain := make([]Middleware, len(d.middleware))
	copy(chain, d.middleware)
	d.mwMu.RUnlock()

	final := func(e events.Event) { d.dispatch(ctx, e) }
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], final
		final = func(e events.Event) { mw(e, next) }
	}
	final(evt)
}

func (d *Dispatcher) dispatch(ctx context.Context, evt events.Event) {
	start := time.Now()
	d.mu.Lock()
	d.apply(ctx, evt)
	snap := d.snapshotLocked()
	d.mu.Unlock()

	d.metrics.IncCounter("agui.events.dispatched", 1, "type", string(evt.Type()))
	d.metrics.RecordTimer("agui.dispatch.duration", time.Since(start), "type", string(evt.Type()))
	d.publish(ctx, snap)
}

// Abort terminates the run client-side. The run errors with the given code,
// in-flight streams are discarded unless draining is enabled, and subsequent
// events for the aborted run are dropped until the next run starts.
func (d *Dispatcher) Abort(ctx context.Context, code string) {
	d.mu.Lock()
	if err := d.machine.Error("run aborted by client", code, ""); err != nil {
		d.logger.Debug(ctx, "abort with no run in progress", "code", code)
	}
	d.aborted = true
	if !d.cfg.DrainAfterAbort {
		d.msgs.DiscardOpen()
		d.reason.DiscardOpen()
	}
	d.recordFault(ctx, FaultCancellation, "", fmt.Errorf("run aborted by client (code %q)", code))
	snap := d.snapshotLocked()
	d.mu.Unlock()
	d.publish(ctx, snap)
}

// ApproveToolCall releases a tool call awaiting approval and publishes the
// updated aggregate.
func (d *Dispatcher) ApproveToolCall(ctx context.Context, toolCallID string) error {
	return d.decide(ctx, toolCallID, d.calls.Approve)
}

// RejectToolCall declines a tool call awaiting approval and publishes the
// updated aggregate.
func (d *Dispatcher) RejectToolCall(ctx context.Context, toolCallID string) error {
	return d.decide(ctx, toolCallID, d.calls.Reject)
}

func (d *Dispatcher) decide(ctx context.Context, toolCallID string, fn func(string) error) error {
	d.mu.Lock()
	if err := fn(toolCallID); err != nil {
		d.mu.Unlock()
		return err
	}
	snap := d.snapshotLocked()
	d.mu.Unlock()
	d.publish(ctx, snap)
	return nil
}

// Snapshot returns a deep copy of the current aggregate.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// apply folds one event into the aggregate. Callers hold mu.
func (d *Dispatcher) apply(ctx context.Context, evt events.Event) {
	if d.aborted && !d.admitAfterAbort(evt) {
		d.logger.Debug(ctx, "dropping event after abort", "type", string(evt.Type()))
		return
	}
	// Backends may emit trailing events racing the terminal one. They are
	// still applied against the most recent run context, but flagged.
	if t := evt.Type(); !events.IsLifecycle(t) && t != events.TypeRaw && t != events.TypeCustom && !d.machine.Running() {
		d.recordFault(ctx, FaultLifecycle, string(t), fmt.Errorf("event received outside a running run"))
	}
	switch e := evt.(type) {
	case *events.RunStartedEvent:
		d.aborted = false
		if err := d.machine.Start(e.ThreadID, e.RunID); err != nil {
			d.recordFault(ctx, FaultLifecycle, string(evt.Type()), err)
		}
	case *events.RunFinishedEvent:
		d.recordIfErr(ctx, evt, d.machine.Finish(e.ThreadID, e.RunID, e.Result))
	case *events.RunErrorEvent:
		d.recordIfErr(ctx, evt, d.machine.Error(e.Message, e.Code, e.RunID))
	case *events.StepStartedEvent:
		d.recordIfErr(ctx, evt, d.machine.StartStep(e.StepName))
	case *events.StepFinishedEvent:
		d.recordIfErr(ctx, evt, d.machine.FinishStep(e.StepName))

	case *events.TextMessageStartEvent:
		d.recordIfErr(ctx, evt, d.msgs.Start(e.MessageID, e.Role))
	case *events.TextMessageContentEvent:
		d.recordIfErr(ctx, evt, d.msgs.Append(e.MessageID, e.Delta))
	case *events.TextMessageEndEvent:
		d.recordIfErr(ctx, evt, d.msgs.End(e.MessageID))
	case *events.TextMessageChunkEvent:
		d.recordIfErr(ctx, evt, d.msgs.Chunk(e.MessageID, e.Role, e.Delta))

	case *events.ToolCallStartEvent:
		d.recordIfErr(ctx, evt, d.calls.Start(e.ToolCallID, e.ToolCallName, e.ParentMessageID))
	case *events.ToolCallArgsEvent:
		d.recordIfErr(ctx, evt, d.calls.Args(e.ToolCallID, e.Delta))
	case *events.ToolCallEndEvent:
		c, err := d.calls.End(e.ToolCallID)
		if err != nil {
			d.recordIfErr(ctx, evt, err)
			return
		}
		d.attachCall(ctx, c)
	case *events.ToolCallChunkEvent:
		c, err := d.calls.Chunk(e.ToolCallID, e.ToolCallName, e.ParentMessageID, e.Delta)
		if err != nil {
			d.recordIfErr(ctx, evt, err)
			return
		}
		d.attachCall(ctx, c)
	case *events.ToolCallResultEvent:
		c, err := d.calls.Result(e.ToolCallID, e.MessageID, e.Content)
		if err != nil {
			d.recordIfErr(ctx, evt, err)
			return
		}
		d.msgs.AddFinal(events.Message{ID: e.MessageID, Role: events.RoleTool, Content: e.Content, ToolCallID: c.ID})

	case *events.StateSnapshotEvent:
		d.state = patch.Clone(e.Snapshot)
	case *events.StateDeltaEvent:
		next, err := patch.Apply(d.state, e.Delta)
		if err != nil {
			d.recordFault(ctx, FaultPatch, string(evt.Type()), err)
			return
		}
		d.state = next
	case *events.MessagesSnapshotEvent:
		d.msgs.ReplaceAll(e.Messages)
	case *events.ActivitySnapshotEvent:
		if e.Replace {
			delete(d.activities, e.MessageID)
		}
		if d.activities[e.MessageID] == nil {
			d.activities[e.MessageID] = make(map[string]any)
		}
		d.activities[e.MessageID][e.ActivityType] = patch.Clone(e.Content)
	case *events.ActivityDeltaEvent:
		base := d.activities[e.MessageID][e.ActivityType]
		next, err := patch.Apply(base, e.Patch)
		if err != nil {
			d.recordFault(ctx, FaultPatch, string(evt.Type()), err)
			return
		}
		if d.activities[e.MessageID] == nil {
			d.activities[e.MessageID] = make(map[string]any)
		}
		d.activities[e.MessageID][e.ActivityType] = next

	case *events.ReasoningStartEvent:
		d.recordIfErr(ctx, evt, d.reason.StartPhase())
	case *events.ReasoningEndEvent:
		d.recordIfErr(ctx, evt, d.reason.EndPhase())
	case *events.ReasoningMessageStartEvent:
		d.recordIfErr(ctx, evt, d.reason.StartMessage(e.MessageID))
	case *events.ReasoningMessageContentEvent:
		d.recordIfErr(ctx, evt, d.reason.AppendMessage(e.MessageID, e.Delta))
	case *events.ReasoningMessageEndEvent:
		d.recordIfErr(ctx, evt, d.reason.EndMessage(e.MessageID))
	case *events.ReasoningMessageChunkEvent:
		d.recordIfErr(ctx, evt, d.reason.Chunk(e.MessageID, e.Delta))
	case *events.ReasoningEncryptedValueEvent:
		d.reason.EncryptedValue(e.MessageID, e.EncryptedValue)

	case *events.RawEvent:
		d.logger.Debug(ctx, "pass-through raw event", "source", e.Source)
	case *events.CustomEvent:
		d.logger.Debug(ctx, "pass-through custom event", "name", e.Name)

	default:
		d.recordFault(ctx, FaultSchema, string(evt.Type()), fmt.Errorf("unhandled event type %q", evt.Type()))
	}
}

// admitAfterAbort reports whether evt is still applied once the run has been
// aborted. A new run always gets through; streaming content is folded in only
// when draining is enabled.
func (d *Dispatcher) admitAfterAbort(evt events.Event) bool {
	t := evt.Type()
	if t == events.TypeRunStarted {
		return true
	}
	if !d.cfg.DrainAfterAbort {
		return false
	}
	return events.IsTextMessage(t) || events.IsToolCall(t) || events.IsReasoning(t)
}

// attachCall links a completed tool call to the assistant message that
// requested it. Callers hold mu.
func (d *Dispatcher) attachCall(ctx context.Context, c toolcalls.Call) {
	if c.ParentMessageID == "" {
		return
	}
	wire := events.ToolCall{ID: c.ID, Name: c.Name, Args: c.Args}
	if !d.msgs.AttachToolCall(c.ParentMessageID, wire) {
		d.logger.Debug(ctx, "tool call parent message not found", "toolCallId", c.ID, "messageId", c.ParentMessageID)
	}
}

// recordIfErr classifies err and records it as a fault. Callers hold mu.
func (d *Dispatcher) recordIfErr(ctx context.Context, evt events.Event, err error) {
	if err == nil {
		return
	}
	kind := FaultSchema
	var seq *events.SequenceError
	var vio *run.Violation
	var pe *patch.Error
	switch {
	case errors.As(err, &seq):
		kind = FaultSequence
	case errors.As(err, &vio):
		kind = FaultLifecycle
	case errors.As(err, &pe):
		kind = FaultPatch
	}
	d.recordFault(ctx, kind, string(evt.Type()), err)
}

// recordFault appends a fault, evicting the oldest past the configured bound.
// Callers hold mu.
func (d *Dispatcher) recordFault(ctx context.Context, kind FaultKind, eventType string, err error) {
	d.logger.Warn(ctx, "event fault", "kind", string(kind), "type", eventType, "err", err.Error())
	d.metrics.IncCounter("agui.events.faults", 1, "kind", string(kind))
	d.faults = append(d.faults, Fault{Kind: kind, EventType: eventType, Message: err.Error()})
	if max := d.cfg.MaxFaults; max > 0 && len(d.faults) > max {
		d.faults = d.faults[len(d.faults)-max:]
	}
}

// snapshotLocked builds a deep-copied aggregate view. Callers hold mu.
func (d *Dispatcher) snapshotLocked() Snapshot {
	activities := make(map[string]map[string]any, len(d.activities))
	for mid, byType := range d.activities {
		m := make(map[string]any, len(byType))
		for at, content := range byType {
			m[at] = patch.Clone(content)
		}
		activities[mid] = m
	}
	faults := make([]Fault, len(d.faults))
	copy(faults, d.faults)
	return Snapshot{
		Run:              d.machine.Current(),
		History:          d.machine.History(),
		Messages:         d.msgs.Messages(),
		ToolCalls:        d.calls.Calls(),
		PendingApprovals: d.calls.Pending(),
		Reasoning:        d.reason.Traces(),
		ReasoningOpen:    d.reason.PhaseOpen(),
		State:            patch.Clone(d.state),
		Activities:       activities,
		Faults:           faults,
	}
}

// publish fans the snapshot out to subscribers. A subscriber error halts
// delivery for this snapshot only.
func (d *Dispatcher) publish(ctx context.Context, snap Snapshot) {
	if err := d.bus.publish(ctx, snap); err != nil {
		d.logger.Warn(ctx, "subscriber halted snapshot delivery", "err", err.Error())
	}
}
