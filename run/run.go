// Package run tracks the agent run lifecycle driven by the lifecycle event
// channel: run start and termination, nested named steps, and the history of
// completed runs on a thread.
package run

import (
	"fmt"
	"sync"

	"goa.design/agui/events"
)

// Status is a run's lifecycle phase.
type Status string

const (
	// StatusIdle means no run has started yet.
	StatusIdle Status = "idle"
	// StatusRunning means a run is in progress.
	StatusRunning Status = "running"
	// StatusFinished means the run terminated successfully.
	StatusFinished Status = "finished"
	// StatusErrored means the run terminated with an error.
	StatusErrored Status = "errored"
)

type (
	// Context is the observable state of one run.
	Context struct {
		ThreadID string
		RunID    string
		Status   Status
		// Result is the final output carried by a successful termination.
		Result any
		// ErrorMessage and ErrorCode describe an errored termination.
		ErrorMessage string
		ErrorCode    string
		// OpenSteps lists the named steps started but not yet finished, in
		// start order. Terminal transitions clear it.
		OpenSteps []string
	}

	// Violation reports a lifecycle event that is structurally valid but
	// illegal in the current phase. Violations never corrupt the machine: the
	// offending event is dropped and the prior state stands.
	Violation struct {
		// EventType is the offending event's variant.
		EventType events.Type
		// Reason describes the violated rule.
		Reason string
	}

	// Machine is the run lifecycle state machine. It is safe for concurrent
	// use. Terminal events are idempotent: replaying a termination for the
	// run that already terminated is a no-op rather than an error.
	Machine struct {
		mu      sync.Mutex
		cur     Context
		history []Context
	}
)

// Error implements error.
func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.EventType, v.Reason)
}

// NewMachine returns a machine in the idle phase.
func NewMachine() *Machine {
	return &Machine{cur: Context{Status: StatusIdle}}
}

// Start begins a run. Restarting the run currently in progress is a no-op.
// Starting a different run while one is in progress, or after a terminal
// phase, archives the previous run context to history and begins fresh.
func (m *Machine) Start(threadID, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.Status == StatusRunning && m.cur.RunID == runID {
		return nil
	}
	if m.cur.Status != StatusIdle {
		m.archive()
	}
	m.cur = Context{ThreadID: threadID, RunID: runID, Status: StatusRunning}
	return nil
}

// Finish terminates the run successfully. A repeated termination for the run
// that already terminated is a no-op; finishing a run that never started or a
// different run than the one in progress is a violation.
func (m *Machine) Finish(threadID, runID string, result any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.Status == StatusFinished && m.cur.RunID == runID {
		return nil
	}
	if m.cur.Status != StatusRunning {
		return &Violation{EventType: events.TypeRunFinished, Reason: fmt.Sprintf("no run in progress (status %s)", m.cur.Status)}
	}
	if m.cur.RunID != runID {
		return &Violation{EventType: events.TypeRunFinished, Reason: fmt.Sprintf("run id %q does not match current run %q", runID, m.cur.RunID)}
	}
	m.cur.Status = StatusFinished
	m.cur.Result = result
	m.cur.OpenSteps = nil
	return nil
}

// Error terminates the run with an error. An empty runID addresses the run in
// progress. A repeated termination for an already-terminated run is a no-op.
func (m *Machine) Error(message, code, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.cur.Status == StatusErrored || m.cur.Status == StatusFinished) && (runID == "" || m.cur.RunID == runID) {
		return nil
	}
	if m.cur.Status != StatusRunning {
		return &Violation{EventType: events.TypeRunError, Reason: fmt.Sprintf("no run in progress (status %s)", m.cur.Status)}
	}
	if runID != "" && m.cur.RunID != runID {
		return &Violation{EventType: events.TypeRunError, Reason: fmt.Sprintf("run id %q does not match current run %q", runID, m.cur.RunID)}
	}
	m.cur.Status = StatusErrored
	m.cur.ErrorMessage = message
	m.cur.ErrorCode = code
	m.cur.OpenSteps = nil
	return nil
}

// StartStep opens a named step. Steps require a run in progress; opening a
// step name that is already open is a violation.
func (m *Machine) StartStep(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.Status != StatusRunning {
		return &Violation{EventType: events.TypeStepStarted, Reason: fmt.Sprintf("no run in progress (status %s)", m.cur.Status)}
	}
	for _, s := range m.cur.OpenSteps {
		if s == name {
			return &Violation{EventType: events.TypeStepStarted, Reason: fmt.Sprintf("step %q already open", name)}
		}
	}
	m.cur.OpenSteps = append(m.cur.OpenSteps, name)
	return nil
}

// FinishStep closes the named open step. Closing a step that is not open is a
// violation.
func (m *Machine) FinishStep(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.Status != StatusRunning {
		return &Violation{EventType: events.TypeStepFinished, Reason: fmt.Sprintf("no run in progress (status %s)", m.cur.Status)}
	}
	for i := len(m.cur.OpenSteps) - 1; i >= 0; i-- {
		if m.cur.OpenSteps[i] == name {
			m.cur.OpenSteps = append(m.cur.OpenSteps[:i], m.cur.OpenSteps[i+1:]...)
			return nil
		}
	}
	return &Violation{EventType: events.TypeStepFinished, Reason: fmt.Sprintf("step %q is not open", name)}
}

// Running reports whether a run is in progress.
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.Status == StatusRunning
}

// Current returns a copy of the current run context.
func (m *Machine) Current() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.clone()
}

// History returns copies of archived run contexts, oldest first.
func (m *Machine) History() []Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Context, len(m.history))
	for i, c := range m.history {
		out[i] = c.clone()
	}
	return out
}

// archive moves the current context to history. Callers hold mu.
func (m *Machine) archive() {
	m.history = append(m.history, m.cur.clone())
}

func (c Context) clone() Context {
	out := c
	if c.OpenSteps != nil {
		out.OpenSteps = append([]string(nil), c.OpenSteps...)
	}
	return out
}
