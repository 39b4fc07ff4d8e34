package agent

import "context"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a planner's request to run one tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one turn of the agent conversation. Assistant turns may carry
// tool calls; tool turns answer the call with the same ID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// Step is a planner decision: either tool calls to run, or a final answer
// when ToolCalls is empty.
type Step struct {
	Content   string
	ToolCalls []ToolCall
}

// Planner is the language model that sequences the tools.
type Planner interface {
	// Complete answers a single prompt without tools.
	Complete(ctx context.Context, prompt string) (string, error)
	// Next decides the next step from the conversation so far.
	Next(ctx context.Context, system string, history []Message, tools []Tool) (*Step, error)
}
