package brain

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "model"
)

// Message is one committed entry of conversation context.
type Message struct {
	Role Role
	Text string
}

// ToolDeclaration describes one callable function offered to the generator.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is the generator asking for a function to be executed.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult feeds a function's output back into generation.
type ToolResult struct {
	Name    string
	Content string
}

// Request carries everything one generation needs.
type Request struct {
	SystemPrompt string
	History      []Message
	Tools        []ToolDeclaration
	ToolResults  []ToolResult
}

// Reply is the full text of a completed generation.
type Reply struct {
	Text string
}

// DeltaHandler receives each text fragment as it streams in. Returning an
// error aborts the generation.
type DeltaHandler func(text string) error

// Adapter produces streamed agent replies.
type Adapter interface {
	StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error)
}

// ToolProber runs a cheap non-streaming round to find out whether the
// generator wants a tool executed before the spoken reply is produced.
type ToolProber interface {
	ProbeToolCall(ctx context.Context, req Request) (*ToolCall, error)
}
