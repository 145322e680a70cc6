// Package llm provides the chat-completion backend client.
package llm

import "time"

// Message represents a chat message.
//
// Role is one of "system", "user", "assistant", or "tool". Assistant
// messages may carry ToolCalls; tool messages carry the ToolCallID they
// answer. All fields use proper Go types; wire format conversion
// happens at the provider boundary (openai.go).
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured function invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned call ID, required for correlating the
	// tool result message on the follow-up request.
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolSpec describes a callable function for the model, in the
// function-calling wire shape: Parameters is a JSON-schema object.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatResponse is the normalized response from the backend.
//
// Exactly one of two outcomes holds: Message.ToolCalls is non-empty
// (the model wants a tool executed) or Message.Content is the final
// text. Callers switch on ToolCall() rather than inspecting fields.
type ChatResponse struct {
	Model        string
	Message      Message
	FinishReason string

	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// ToolCall returns the first requested tool call, or nil for a final
// text answer. The agent loop permits at most one tool round per turn,
// so additional parallel calls are not surfaced.
func (r *ChatResponse) ToolCall() *ToolCall {
	if len(r.Message.ToolCalls) == 0 {
		return nil
	}
	return &r.Message.ToolCalls[0]
}
