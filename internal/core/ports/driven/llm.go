package driven

import "context"

// LLMService is a chat model. Answers go through Chat with the retrieved
// context in the system message; compression and query rewriting use
// Generate.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)
	ModelName() string

	// Ping makes the smallest request the provider accepts.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tune a single-prompt completion. Zero values leave the
// provider default in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

// Roles of a ChatMessage.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message of a conversation sent to the model.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tune a chat completion. Zero values leave the provider
// default in place.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
