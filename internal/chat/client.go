package chat

import "context"

// Message is the wire form of one chat turn sent to the completion service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage holds token accounting returned by the completion service.
type Usage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ChatOptions keeps knobs forwarded to the service untouched.
type ChatOptions struct {
	Temperature     float32
	MaxOutputTokens int
}

// CompletionRequest is one request to the external completion service.
type CompletionRequest struct {
	Model        string
	Messages     []Message
	SystemPrompt string
	Stream       bool
	Options      ChatOptions
}

// CompletionResult is the settled outcome of one request.
type CompletionResult struct {
	Content          string
	ReasoningContent string
	Usage            *Usage
}

// StreamFunc receives each partial text chunk during a streaming request.
type StreamFunc func(chunk string)

// CompletionClient abstracts the completion service. Implementations must
// deliver partial output through onChunk when req.Stream is set and must
// honor ctx cancellation mid-flight. onChunk may be nil.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest, onChunk StreamFunc) (CompletionResult, error)
}

// IDGenerator produces globally-unique opaque string identifiers. Injected
// rather than looked up from ambient globals so tests can pin ids.
type IDGenerator interface {
	NewID() string
}
