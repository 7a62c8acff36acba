package events

import "fmt"

type (
	// SchemaError reports a malformed or unknown wire event. Schema errors are
	// never fatal to a run: the dispatcher drops the event, records the error
	// and continues.
	SchemaError struct {
		// EventType is the claimed variant, empty when the payload carried no
		// usable type discriminator.
		EventType Type
		// Err is the underlying decode or validation failure.
		Err error
	}

	// SequenceError reports an event that is structurally valid but arrived in
	// an order the protocol forbids, such as a content delta for a message
	// that already ended. Sequence errors are dropped with a warning.
	SequenceError struct {
		// EventType is the offending event's variant.
		EventType Type
		// Subject identifies the entity the event addressed (message id, tool
		// call id, step name).
		Subject string
		// Reason describes the violated ordering constraint.
		Reason string
	}
)

// Error implements error.
func (e *SchemaError) Error() string {
	if e.EventType == "" {
		return fmt.Sprintf("invalid event: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s event: %v", e.EventType, e.Err)
}

// Unwrap returns the underlying failure.
func (e *SchemaError) Unwrap() error { return e.Err }

// Error implements error.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s out of sequence for %q: %s", e.EventType, e.Subject, e.Reason)
}
