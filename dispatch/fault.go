package dispatch

import "fmt"

// FaultKind classifies a non-fatal processing fault.
type FaultKind string

const (
	// FaultSchema marks a payload that failed validation or decoding.
	FaultSchema FaultKind = "schema"
	// FaultSequence marks a structurally valid event that arrived in an
	// order the protocol forbids.
	FaultSequence FaultKind = "sequence"
	// FaultPatch marks a state or activity patch that failed to apply.
	FaultPatch FaultKind = "patch"
	// FaultLifecycle marks a lifecycle event illegal in the current phase.
	FaultLifecycle FaultKind = "lifecycle"
	// FaultCancellation marks a client-side abort.
	FaultCancellation FaultKind = "cancellation"
)

// Fault records a dropped event or failed mutation. Faults never stop the
// engine; they accumulate on the aggregate so consumers can surface them.
type Fault struct {
	// Kind classifies the fault.
	Kind FaultKind
	// EventType names the offending event's wire type, empty when the fault
	// did not originate from an event.
	EventType string
	// Message describes the fault.
	Message string
}

// String implements fmt.Stringer.
func (f Fault) String() string {
	if f.EventType == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s (%s): %s", f.Kind, f.EventType, f.Message)
}
