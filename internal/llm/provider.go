package llm

import "context"

// Message represents a chat message in the conversation trace
type Message struct {
	Role       string           `json:"role"` // "user", "assistant", "system", "tool"
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`         // Tool name for tool result messages
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`   // For assistant messages requesting tools
	ToolCallID string           `json:"tool_call_id,omitempty"` // For tool result messages
}

// Turn is one model response: either a terminal answer or tool call requests
type Turn struct {
	Content   string
	ToolCalls []OpenAIToolCall
}

// IsFinal reports whether the turn is a terminal answer (no tool calls)
func (t *Turn) IsFinal() bool {
	return len(t.ToolCalls) == 0
}

// Provider is the interface for LLM backends.
// Implementations hold no session state between calls.
type Provider interface {
	// Name identifies the provider for logging and failure reports
	Name() string

	// Complete produces the next turn given the conversation so far
	// and the available tool definitions
	Complete(ctx context.Context, messages []Message, tools []OpenAITool) (*Turn, error)
}
