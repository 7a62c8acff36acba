package events

// Type identifies one of the 28 wire event variants. The string value is the
// discriminator carried in the JSON "type" field and uniquely determines the
// variant's field set.
type Type string

const (
	// TypeRunStarted signals that an agent run has begun executing.
	TypeRunStarted Type = "RUN_STARTED"
	// TypeRunFinished signals that a run completed successfully.
	TypeRunFinished Type = "RUN_FINISHED"
	// TypeRunError signals that a run terminated with an error.
	TypeRunError Type = "RUN_ERROR"
	// TypeStepStarted marks the beginning of a named step within a run.
	TypeStepStarted Type = "STEP_STARTED"
	// TypeStepFinished marks the completion of a named step.
	TypeStepFinished Type = "STEP_FINISHED"

	// TypeTextMessageStart opens a streaming assistant text message.
	TypeTextMessageStart Type = "TEXT_MESSAGE_START"
	// TypeTextMessageContent appends a delta to an open text message.
	TypeTextMessageContent Type = "TEXT_MESSAGE_CONTENT"
	// TypeTextMessageEnd finalizes an open text message.
	TypeTextMessageEnd Type = "TEXT_MESSAGE_END"
	// TypeTextMessageChunk carries a self-contained message fragment that
	// implicitly creates and finalizes a message when its id is unknown.
	TypeTextMessageChunk Type = "TEXT_MESSAGE_CHUNK"

	// TypeToolCallStart announces a tool invocation by the assistant.
	TypeToolCallStart Type = "TOOL_CALL_START"
	// TypeToolCallArgs appends an argument-text delta to a tool call.
	TypeToolCallArgs Type = "TOOL_CALL_ARGS"
	// TypeToolCallEnd marks the end of a tool call's argument stream.
	TypeToolCallEnd Type = "TOOL_CALL_END"
	// TypeToolCallChunk carries a self-contained tool-call fragment.
	TypeToolCallChunk Type = "TOOL_CALL_CHUNK"
	// TypeToolCallResult delivers the result produced by a tool execution.
	TypeToolCallResult Type = "TOOL_CALL_RESULT"

	// TypeStateSnapshot replaces the shared application state wholesale.
	TypeStateSnapshot Type = "STATE_SNAPSHOT"
	// TypeStateDelta mutates the shared application state with a JSON Patch.
	TypeStateDelta Type = "STATE_DELTA"
	// TypeMessagesSnapshot replaces the finalized message list wholesale.
	TypeMessagesSnapshot Type = "MESSAGES_SNAPSHOT"
	// TypeActivitySnapshot replaces an activity entry keyed by
	// (messageId, activityType).
	TypeActivitySnapshot Type = "ACTIVITY_SNAPSHOT"
	// TypeActivityDelta patches an activity entry with a JSON Patch.
	TypeActivityDelta Type = "ACTIVITY_DELTA"

	// TypeReasoningStart opens a reasoning phase.
	TypeReasoningStart Type = "REASONING_START"
	// TypeReasoningEnd closes a reasoning phase.
	TypeReasoningEnd Type = "REASONING_END"
	// TypeReasoningMessageStart opens a streaming reasoning message.
	TypeReasoningMessageStart Type = "REASONING_MESSAGE_START"
	// TypeReasoningMessageContent appends a delta to an open reasoning message.
	TypeReasoningMessageContent Type = "REASONING_MESSAGE_CONTENT"
	// TypeReasoningMessageEnd finalizes an open reasoning message.
	TypeReasoningMessageEnd Type = "REASONING_MESSAGE_END"
	// TypeReasoningMessageChunk carries a self-contained reasoning fragment.
	TypeReasoningMessageChunk Type = "REASONING_MESSAGE_CHUNK"
	// TypeReasoningEncryptedValue carries an opaque encrypted reasoning blob.
	// The payload is never concatenated; it attaches as a single value.
	TypeReasoningEncryptedValue Type = "REASONING_ENCRYPTED_VALUE"

	// TypeRaw passes through an arbitrary upstream event without interpretation.
	TypeRaw Type = "RAW"
	// TypeCustom carries an application-defined event outside the protocol.
	TypeCustom Type = "CUSTOM"
)

// AllTypes enumerates every wire event type. It is the single source of truth
// consumed by the schema validator, the codec, and the category guards so the
// partition below stays mechanically enforced.
var AllTypes = []Type{
	TypeRunStarted,
	TypeRunFinished,
	TypeRunError,
	TypeStepStarted,
	TypeStepFinished,
	TypeTextMessageStart,
	TypeTextMessageContent,
	TypeTextMessageEnd,
	TypeTextMessageChunk,
	TypeToolCallStart,
	TypeToolCallArgs,
	TypeToolCallEnd,
	TypeToolCallChunk,
	TypeToolCallResult,
	TypeStateSnapshot,
	TypeStateDelta,
	TypeMessagesSnapshot,
	TypeActivitySnapshot,
	TypeActivityDelta,
	TypeReasoningStart,
	TypeReasoningEnd,
	TypeReasoningMessageStart,
	TypeReasoningMessageContent,
	TypeReasoningMessageEnd,
	TypeReasoningMessageChunk,
	TypeReasoningEncryptedValue,
	TypeRaw,
	TypeCustom,
}

// IsLifecycle reports whether t is a run or step lifecycle event.
func IsLifecycle(t Type) bool {
	switch t {
	case TypeRunStarted, TypeRunFinished, TypeRunError, TypeStepStarted, TypeStepFinished:
		return true
	}
	return false
}

// IsTextMessage reports whether t belongs to the text message channel.
func IsTextMessage(t Type) bool {
	switch t {
	case TypeTextMessageStart, TypeTextMessageContent, TypeTextMessageEnd, TypeTextMessageChunk:
		return true
	}
	return false
}

// IsToolCall reports whether t belongs to the tool call channel.
func IsToolCall(t Type) bool {
	switch t {
	case TypeToolCallStart, TypeToolCallArgs, TypeToolCallEnd, TypeToolCallChunk, TypeToolCallResult:
		return true
	}
	return false
}

// IsState reports whether t is a state or activity synchronization event.
func IsState(t Type) bool {
	switch t {
	case TypeStateSnapshot, TypeStateDelta, TypeMessagesSnapshot, TypeActivitySnapshot, TypeActivityDelta:
		return true
	}
	return false
}

// IsReasoning reports whether t belongs to the reasoning channel.
func IsReasoning(t Type) bool {
	switch t {
	case TypeReasoningStart, TypeReasoningEnd,
		TypeReasoningMessageStart, TypeReasoningMessageContent, TypeReasoningMessageEnd,
		TypeReasoningMessageChunk, TypeReasoningEncryptedValue:
		return true
	}
	return false
}

// Known reports whether t is one of the 28 protocol event types.
func Known(t Type) bool {
	return IsLifecycle(t) || IsTextMessage(t) || IsToolCall(t) || IsState(t) || IsReasoning(t) ||
		t == TypeRaw || t == TypeCustom
}
