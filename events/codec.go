package events

import (
	"encoding/json"
	"fmt"
)

// rawSetter is implemented by *BaseEvent so Decode can stash the original
// encoded form on any concrete variant.
type rawSetter interface {
	setRaw(json.RawMessage)
}

func (b *BaseEvent) setRaw(data json.RawMessage) { b.raw = data }

// Decode parses a raw wire event into its typed variant. The payload is
// validated against the variant schema first; unknown types and missing
// required fields yield a *SchemaError. Fields this protocol version does not
// model are retained on the event so Encode round-trips them losslessly.
func Decode(data []byte) (Event, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var env struct {
		Type Type `json:"type"`
	}
	// Validate already proved the envelope decodes.
	_ = json.Unmarshal(data, &env)

	evt := newEvent(env.Type)
	if err := json.Unmarshal(data, evt); err != nil {
		return nil, &SchemaError{EventType: env.Type, Err: fmt.Errorf("decode %s payload: %w", env.Type, err)}
	}
	evt.(rawSetter).setRaw(append(json.RawMessage(nil), data...))
	return evt, nil
}

// Encode serializes a typed event back to its wire form. Events produced by
// Decode are re-emitted from their original bytes so unknown fields survive a
// decode/encode cycle with JSON value equality.
func Encode(evt Event) (json.RawMessage, error) {
	if evt == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	if raw := evt.Raw(); raw != nil {
		return append(json.RawMessage(nil), raw...), nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.Type(), err)
	}
	return data, nil
}

// newEvent returns a zero value of the concrete variant for t. The switch is
// exhaustive over AllTypes; Decode only calls it with a known type.
func newEvent(t Type) Event {
	switch t {
	case TypeRunStarted:
		return &RunStartedEvent{}
	case TypeRunFinished:
		return &RunFinishedEvent{}
	case TypeRunError:
		return &RunErrorEvent{}
	case TypeStepStarted:
		return &StepStartedEvent{}
	case TypeStepFinished:
		return &StepFinishedEvent{}
	case TypeTextMessageStart:
		return &TextMessageStartEvent{}
	case TypeTextMessageContent:
		return &TextMessageContentEvent{}
	case TypeTextMessageEnd:
		return &TextMessageEndEvent{}
	case TypeTextMessageChunk:
		return &TextMessageChunkEvent{}
	case TypeToolCallStart:
		return &ToolCallStartEvent{}
	case TypeToolCallArgs:
		return &ToolCallArgsEvent{}
	case TypeToolCallEnd:
		return &ToolCallEndEvent{}
	case TypeToolCallChunk:
		return &ToolCallChunkEvent{}
	case TypeToolCallResult:
		return &ToolCallResultEvent{}
	case TypeStateSnapshot:
		return &StateSnapshotEvent{}
	case TypeStateDelta:
		return &StateDeltaEvent{}
	case TypeMessagesSnapshot:
		return &MessagesSnapshotEvent{}
	case TypeActivitySnapshot:
		return &ActivitySnapshotEvent{}
	case TypeActivityDelta:
		return &ActivityDeltaEvent{}
	case TypeReasoningStart:
		return &ReasoningStartEvent{}
	case TypeReasoningEnd:
		return &ReasoningEndEvent{}
	case TypeReasoningMessageStart:
		return &ReasoningMessageStartEvent{}
	case TypeReasoningMessageContent:
		return &ReasoningMessageContentEvent{}
	case TypeReasoningMessageEnd:
		return &ReasoningMessageEndEvent{}
	case TypeReasoningMessageChunk:
		return &ReasoningMessageChunkEvent{}
	case TypeReasoningEncryptedValue:
		return &ReasoningEncryptedValueEvent{}
	case TypeRaw:
		return &RawEvent{}
	case TypeCustom:
		return &CustomEvent{}
	}
	return nil
}
