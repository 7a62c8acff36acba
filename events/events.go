// Package events defines the typed wire protocol spoken between an AI-agent
// backend and a consuming UI: 28 event variants across seven categories
// (lifecycle, text message, tool call, state, reasoning, plus the RAW and
// CUSTOM pass-through types), the message and tool-call entities they build,
// and the codec that decodes raw JSON into typed events.
//
// Every event is a flat JSON object discriminated by a string "type" field.
// Unknown fields on an otherwise-valid event are ignored on decode and
// preserved losslessly on encode so additive protocol changes round-trip.
package events

import (
	"encoding/json"
	"time"

	"goa.design/agui/patch"
)

type (
	// Event is implemented by all wire event variants. Consumers use type
	// switches on the concrete types for structured field access and the Type
	// method for category routing without assertions.
	Event interface {
		// Type returns the wire discriminator for this event.
		Type() Type
		// Timestamp returns the Unix timestamp in milliseconds stamped by the
		// producer, or zero when the event carried none.
		Timestamp() int64
		// Raw returns the original encoded form when the event was produced by
		// Decode, nil otherwise. Encode re-emits it unchanged so fields this
		// protocol version does not model survive a decode/encode cycle.
		Raw() json.RawMessage
	}

	// BaseEvent holds the fields common to every wire variant. Concrete event
	// types embed it to inherit the Event implementation.
	BaseEvent struct {
		// EventType is the wire discriminator. Constructors and Decode set it;
		// it must match the concrete struct's variant.
		EventType Type `json:"type"`
		// TimestampMS is the optional producer-side Unix millisecond timestamp.
		TimestampMS int64 `json:"timestamp,omitempty"`
		// RawEvent optionally carries the upstream provider event that this
		// protocol event was derived from. It is opaque to this layer.
		RawEvent any `json:"rawEvent,omitempty"`

		raw json.RawMessage
	}

	// RunStartedEvent opens a new run for a thread.
	RunStartedEvent struct {
		BaseEvent
		ThreadID string `json:"threadId"`
		RunID    string `json:"runId"`
	}

	// RunFinishedEvent terminates a run successfully. Result optionally carries
	// a final output value.
	RunFinishedEvent struct {
		BaseEvent
		ThreadID string `json:"threadId"`
		RunID    string `json:"runId"`
		Result   any    `json:"result,omitempty"`
	}

	// RunErrorEvent terminates a run with an error.
	RunErrorEvent struct {
		BaseEvent
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
		RunID   string `json:"runId,omitempty"`
	}

	// StepStartedEvent opens a named step within the running run.
	StepStartedEvent struct {
		BaseEvent
		StepName string `json:"stepName"`
	}

	// StepFinishedEvent closes the named step.
	StepFinishedEvent struct {
		BaseEvent
		StepName string `json:"stepName"`
	}

	// TextMessageStartEvent opens a streaming text message. Role defaults to
	// "assistant" when empty.
	TextMessageStartEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
		Role      string `json:"role,omitempty"`
	}

	// TextMessageContentEvent appends Delta to the open message's content in
	// arrival order.
	TextMessageContentEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
		Delta     string `json:"delta"`
	}

	// TextMessageEndEvent finalizes the open message. Content deltas arriving
	// after the end are protocol errors and are dropped.
	TextMessageEndEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
	}

	// TextMessageChunkEvent is a complete, already-finalized message fragment.
	// A chunk whose MessageID was never started implicitly creates and
	// finalizes a message in one step.
	TextMessageChunkEvent struct {
		BaseEvent
		MessageID string `json:"messageId,omitempty"`
		Role      string `json:"role,omitempty"`
		Delta     string `json:"delta,omitempty"`
	}

	// ToolCallStartEvent announces a tool invocation. ParentMessageID links the
	// call to the assistant message that requested it.
	ToolCallStartEvent struct {
		BaseEvent
		ToolCallID      string `json:"toolCallId"`
		ToolCallName    string `json:"toolCallName"`
		ParentMessageID string `json:"parentMessageId,omitempty"`
	}

	// ToolCallArgsEvent appends Delta to the call's argument text buffer. The
	// buffer is raw text at this layer; it is never parsed as JSON here.
	ToolCallArgsEvent struct {
		BaseEvent
		ToolCallID string `json:"toolCallId"`
		Delta      string `json:"delta"`
	}

	// ToolCallEndEvent marks the end of the call's argument stream.
	ToolCallEndEvent struct {
		BaseEvent
		ToolCallID string `json:"toolCallId"`
	}

	// ToolCallChunkEvent is a self-contained tool-call fragment, mirroring
	// TextMessageChunkEvent for the tool channel.
	ToolCallChunkEvent struct {
		BaseEvent
		ToolCallID      string `json:"toolCallId,omitempty"`
		ToolCallName    string `json:"toolCallName,omitempty"`
		ParentMessageID string `json:"parentMessageId,omitempty"`
		Delta           string `json:"delta,omitempty"`
	}

	// ToolCallResultEvent delivers the tool execution result. It is accepted
	// even when no ToolCallEndEvent preceded it.
	ToolCallResultEvent struct {
		BaseEvent
		MessageID  string `json:"messageId"`
		ToolCallID string `json:"toolCallId"`
		Content    string `json:"content"`
		Role       string `json:"role,omitempty"`
	}

	// StateSnapshotEvent replaces the shared application state wholesale.
	StateSnapshotEvent struct {
		BaseEvent
		Snapshot any `json:"snapshot"`
	}

	// StateDeltaEvent mutates the shared application state by applying Delta
	// as an RFC 6902 patch against the last snapshot baseline.
	StateDeltaEvent struct {
		BaseEvent
		Delta []patch.Op `json:"delta"`
	}

	// MessagesSnapshotEvent replaces the finalized message list wholesale,
	// superseding prior message deltas.
	MessagesSnapshotEvent struct {
		BaseEvent
		Messages []Message `json:"messages"`
	}

	// ActivitySnapshotEvent replaces the activity entry identified by
	// (MessageID, ActivityType). Replace clears every activity recorded for
	// MessageID before installing Content.
	ActivitySnapshotEvent struct {
		BaseEvent
		MessageID    string `json:"messageId"`
		ActivityType string `json:"activityType"`
		Content      any    `json:"content"`
		Replace      bool   `json:"replace,omitempty"`
	}

	// ActivityDeltaEvent patches the activity entry identified by
	// (MessageID, ActivityType) with an RFC 6902 patch.
	ActivityDeltaEvent struct {
		BaseEvent
		MessageID    string     `json:"messageId"`
		ActivityType string     `json:"activityType"`
		Patch        []patch.Op `json:"patch"`
	}

	// ReasoningStartEvent opens a reasoning phase. Zero or more reasoning
	// message sub-streams may occur before the matching ReasoningEndEvent.
	ReasoningStartEvent struct {
		BaseEvent
		MessageID string `json:"messageId,omitempty"`
	}

	// ReasoningEndEvent closes the reasoning phase.
	ReasoningEndEvent struct {
		BaseEvent
		MessageID string `json:"messageId,omitempty"`
	}

	// ReasoningMessageStartEvent opens a streaming reasoning message.
	ReasoningMessageStartEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
		Role      string `json:"role,omitempty"`
	}

	// ReasoningMessageContentEvent appends Delta to the open reasoning message.
	ReasoningMessageContentEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
		Delta     string `json:"delta"`
	}

	// ReasoningMessageEndEvent finalizes the open reasoning message.
	ReasoningMessageEndEvent struct {
		BaseEvent
		MessageID string `json:"messageId"`
	}

	// ReasoningMessageChunkEvent is a self-contained reasoning fragment.
	ReasoningMessageChunkEvent struct {
		BaseEvent
		MessageID string `json:"messageId,omitempty"`
		Delta     string `json:"delta,omitempty"`
	}

	// ReasoningEncryptedValueEvent carries provider-encrypted reasoning as an
	// opaque base64 payload. It shares the reasoning messageId space but is
	// never concatenated; it attaches as a single blob.
	ReasoningEncryptedValueEvent struct {
		BaseEvent
		MessageID      string `json:"messageId,omitempty"`
		EncryptedValue string `json:"encryptedValue"`
	}

	// RawEvent passes through an arbitrary upstream event. The payload is
	// opaque: this layer stores and forwards it without interpretation.
	RawEvent struct {
		BaseEvent
		Event  any    `json:"event"`
		Source string `json:"source,omitempty"`
	}

	// CustomEvent carries an application-defined event outside the protocol's
	// semantics. The value is opaque to this layer.
	CustomEvent struct {
		BaseEvent
		Name  string `json:"name"`
		Value any    `json:"value,omitempty"`
	}
)

// Type implements Event.
func (b *BaseEvent) Type() Type { return b.EventType }

// Timestamp implements Event.
func (b *BaseEvent) Timestamp() int64 { return b.TimestampMS }

// Raw implements Event.
func (b *BaseEvent) Raw() json.RawMessage { return b.raw }

// newBase constructs a BaseEvent for the given variant stamped with the
// current time.
func newBase(t Type) BaseEvent {
	return BaseEvent{EventType: t, TimestampMS: time.Now().UnixMilli()}
}

// NewRunStartedEvent constructs a RUN_STARTED event for the given thread and run.
func NewRunStartedEvent(threadID, runID string) *RunStartedEvent {
	return &RunStartedEvent{BaseEvent: newBase(TypeRunStarted), ThreadID: threadID, RunID: runID}
}

// NewRunFinishedEvent constructs a RUN_FINISHED event. Result may be nil.
func NewRunFinishedEvent(threadID, runID string, result any) *RunFinishedEvent {
	return &RunFinishedEvent{BaseEvent: newBase(TypeRunFinished), ThreadID: threadID, RunID: runID, Result: result}
}

// NewRunErrorEvent constructs a RUN_ERROR event. Code may be empty.
func NewRunErrorEvent(message, code string) *RunErrorEvent {
	return &RunErrorEvent{BaseEvent: newBase(TypeRunError), Message: message, Code: code}
}

// NewStepStartedEvent constructs a STEP_STARTED event for the named step.
func NewStepStartedEvent(stepName string) *StepStartedEvent {
	return &StepStartedEvent{BaseEvent: newBase(TypeStepStarted), StepName: stepName}
}

// NewStepFinishedEvent constructs a STEP_FINISHED event for the named step.
func NewStepFinishedEvent(stepName string) *StepFinishedEvent {
	return &StepFinishedEvent{BaseEvent: newBase(TypeStepFinished), StepName: stepName}
}

// NewTextMessageStartEvent constructs a TEXT_MESSAGE_START event. Role may be
// empty, in which case consumers assume "assistant".
func NewTextMessageStartEvent(messageID, role string) *TextMessageStartEvent {
	return &TextMessageStartEvent{BaseEvent: newBase(TypeTextMessageStart), MessageID: messageID, Role: role}
}

// NewTextMessageContentEvent constructs a TEXT_MESSAGE_CONTENT event.
func NewTextMessageContentEvent(messageID, delta string) *TextMessageContentEvent {
	return &TextMessageContentEvent{BaseEvent: newBase(TypeTextMessageContent), MessageID: messageID, Delta: delta}
}

// NewTextMessageEndEvent constructs a TEXT_MESSAGE_END event.
func NewTextMessageEndEvent(messageID string) *TextMessageEndEvent {
	return &TextMessageEndEvent{BaseEvent: newBase(TypeTextMessageEnd), MessageID: messageID}
}

// NewTextMessageChunkEvent constructs a TEXT_MESSAGE_CHUNK event.
func NewTextMessageChunkEvent(messageID, role, delta string) *TextMessageChunkEvent {
	return &TextMessageChunkEvent{BaseEvent: newBase(TypeTextMessageChunk), MessageID: messageID, Role: role, Delta: delta}
}

// NewToolCallStartEvent constructs a TOOL_CALL_START event. ParentMessageID
// may be empty for calls not linked to a message.
func NewToolCallStartEvent(toolCallID, toolCallName, parentMessageID string) *ToolCallStartEvent {
	return &ToolCallStartEvent{BaseEvent: newBase(TypeToolCallStart), ToolCallID: toolCallID, ToolCallName: toolCallName, ParentMessageID: parentMessageID}
}

// NewToolCallArgsEvent constructs a TOOL_CALL_ARGS event.
func NewToolCallArgsEvent(toolCallID, delta string) *ToolCallArgsEvent {
	return &ToolCallArgsEvent{BaseEvent: newBase(TypeToolCallArgs), ToolCallID: toolCallID, Delta: delta}
}

// NewToolCallEndEvent constructs a TOOL_CALL_END event.
func NewToolCallEndEvent(toolCallID string) *ToolCallEndEvent {
	return &ToolCallEndEvent{BaseEvent: newBase(TypeToolCallEnd), ToolCallID: toolCallID}
}

// NewToolCallChunkEvent constructs a TOOL_CALL_CHUNK event.
func NewToolCallChunkEvent(toolCallID, toolCallName, delta string) *ToolCallChunkEvent {
	return &ToolCallChunkEvent{BaseEvent: newBase(TypeToolCallChunk), ToolCallID: toolCallID, ToolCallName: toolCallName, Delta: delta}
}

// NewToolCallResultEvent constructs a TOOL_CALL_RESULT event. The result
// becomes a tool message with the given messageID.
func NewToolCallResultEvent(messageID, toolCallID, content string) *ToolCallResultEvent {
	return &ToolCallResultEvent{BaseEvent: newBase(TypeToolCallResult), MessageID: messageID, ToolCallID: toolCallID, Content: content, Role: RoleTool}
}

// NewStateSnapshotEvent constructs a STATE_SNAPSHOT event.
func NewStateSnapshotEvent(snapshot any) *StateSnapshotEvent {
	return &StateSnapshotEvent{BaseEvent: newBase(TypeStateSnapshot), Snapshot: snapshot}
}

// NewStateDeltaEvent constructs a STATE_DELTA event from the given patch ops.
func NewStateDeltaEvent(delta []patch.Op) *StateDeltaEvent {
	return &StateDeltaEvent{BaseEvent: newBase(TypeStateDelta), Delta: delta}
}

// NewMessagesSnapshotEvent constructs a MESSAGES_SNAPSHOT event.
func NewMessagesSnapshotEvent(messages []Message) *MessagesSnapshotEvent {
	return &MessagesSnapshotEvent{BaseEvent: newBase(TypeMessagesSnapshot), Messages: messages}
}

// NewActivitySnapshotEvent constructs an ACTIVITY_SNAPSHOT event.
func NewActivitySnapshotEvent(messageID, activityType string, content any, replace bool) *ActivitySnapshotEvent {
	return &ActivitySnapshotEvent{BaseEvent: newBase(TypeActivitySnapshot), MessageID: messageID, ActivityType: activityType, Content: content, Replace: replace}
}

// NewActivityDeltaEvent constructs an ACTIVITY_DELTA event.
func NewActivityDeltaEvent(messageID, activityType string, ops []patch.Op) *ActivityDeltaEvent {
	return &ActivityDeltaEvent{BaseEvent: newBase(TypeActivityDelta), MessageID: messageID, ActivityType: activityType, Patch: ops}
}

// NewReasoningStartEvent constructs a REASONING_START event.
func NewReasoningStartEvent(messageID string) *ReasoningStartEvent {
	return &ReasoningStartEvent{BaseEvent: newBase(TypeReasoningStart), MessageID: messageID}
}

// NewReasoningEndEvent constructs a REASONING_END event.
func NewReasoningEndEvent(messageID string) *ReasoningEndEvent {
	return &ReasoningEndEvent{BaseEvent: newBase(TypeReasoningEnd), MessageID: messageID}
}

// NewReasoningMessageStartEvent constructs a REASONING_MESSAGE_START event.
func NewReasoningMessageStartEvent(messageID string) *ReasoningMessageStartEvent {
	return &ReasoningMessageStartEvent{BaseEvent: newBase(TypeReasoningMessageStart), MessageID: messageID}
}

// NewReasoningMessageContentEvent constructs a REASONING_MESSAGE_CONTENT event.
func NewReasoningMessageContentEvent(messageID, delta string) *ReasoningMessageContentEvent {
	return &ReasoningMessageContentEvent{BaseEvent: newBase(TypeReasoningMessageContent), MessageID: messageID, Delta: delta}
}

// NewReasoningMessageEndEvent constructs a REASONING_MESSAGE_END event.
func NewReasoningMessageEndEvent(messageID string) *ReasoningMessageEndEvent {
	return &ReasoningMessageEndEvent{BaseEvent: newBase(TypeReasoningMessageEnd), MessageID: messageID}
}

// NewReasoningMessageChunkEvent constructs a REASONING_MESSAGE_CHUNK event.
func NewReasoningMessageChunkEvent(messageID, delta string) *ReasoningMessageChunkEvent {
	return &ReasoningMessageChunkEvent{BaseEvent: newBase(TypeReasoningMessageChunk), MessageID: messageID, Delta: delta}
}

// NewReasoningEncryptedValueEvent constructs a REASONING_ENCRYPTED_VALUE event.
// The value is an opaque base64 payload owned by the provider.
func NewReasoningEncryptedValueEvent(messageID, encryptedValue string) *ReasoningEncryptedValueEvent {
	return &ReasoningEncryptedValueEvent{BaseEvent: newBase(TypeReasoningEncryptedValue), MessageID: messageID, EncryptedValue: encryptedValue}
}

// NewRawEvent constructs a RAW pass-through event. Source may be empty.
func NewRawEvent(event any, source string) *RawEvent {
	return &RawEvent{BaseEvent: newBase(TypeRaw), Event: event, Source: source}
}

// NewCustomEvent constructs a CUSTOM event. Value may be nil.
func NewCustomEvent(name string, value any) *CustomEvent {
	return &CustomEvent{BaseEvent: newBase(TypeCustom), Name: name, Value: value}
}
