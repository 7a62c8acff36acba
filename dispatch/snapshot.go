package dispatch

import (
	"goa.design/agui/events"
	"goa.design/agui/reasoning"
	"goa.design/agui/run"
	"goa.design/agui/toolcalls"
)

// Snapshot is an immutable view of the aggregate built from every event
// dispatched so far. Each snapshot is a deep copy: holding one across later
// dispatches never observes mutation.
type Snapshot struct {
	// Run is the current run context.
	Run run.Context
	// History holds the contexts of completed runs on this thread, oldest
	// first.
	History []run.Context
	// Messages is the finalized conversation transcript in stream-open order.
	Messages []events.Message
	// ToolCalls lists every tracked tool invocation in announcement order.
	ToolCalls []toolcalls.Call
	// PendingApprovals lists tool call ids awaiting an approval decision.
	PendingApprovals []string
	// Reasoning holds the finalized reasoning traces.
	Reasoning []reasoning.Trace
	// ReasoningOpen reports whether a reasoning phase is currently open.
	ReasoningOpen bool
	// State is the shared application state maintained by snapshot and delta
	// events.
	State any
	// Activities maps message id to activity type to content.
	Activities map[string]map[string]any
	// Faults lists the non-fatal faults recorded so far, oldest first,
	// bounded by the configured maximum.
	Faults []Fault
}
