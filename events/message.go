package events

// Conversation message roles.
const (
	// RoleSystem marks instructions injected by the application.
	RoleSystem = "system"
	// RoleUser marks end-user input.
	RoleUser = "user"
	// RoleAssistant marks agent output, built incrementally from the text
	// message channel.
	RoleAssistant = "assistant"
	// RoleTool marks tool results fed back into the conversation.
	RoleTool = "tool"
)

type (
	// Message is one entry of the reconstructed conversation. ID is unique
	// within a run. Assistant messages may carry tool calls; tool messages
	// carry the ToolCallID that links back to the originating call.
	Message struct {
		ID      string `json:"id"`
		Role    string `json:"role"`
		Content string `json:"content,omitempty"`
		// ToolCalls lists the completed tool invocations requested by an
		// assistant message. Nil for other roles.
		ToolCalls []ToolCall `json:"toolCalls,omitempty"`
		// ToolCallID links a tool-role message to the call that produced it.
		ToolCallID string `json:"toolCallId,omitempty"`
	}

	// ToolCall is the wire form of a tool invocation attached to an assistant
	// message. Args holds the raw argument text exactly as streamed; this
	// layer never parses it as JSON.
	ToolCall struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Args string `json:"args"`
	}
)

// Clone returns a deep copy of the message so callers can hold it across
// later dispatches without observing mutation.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}
