package driven

import "context"

// LLMService answers questions and writes exam questions. It is optional:
// when nil the question and exam services report ErrLLMUnavailable.
// Adapters exist for Ollama, OpenAI and Anthropic.
type LLMService interface {
	// Generate completes a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat continues a conversation. The first message may carry the
	// system role.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// RewriteQuery turns a conversational question into a search query.
	RewriteQuery(ctx context.Context, query string) (string, error)

	// ModelName identifies the model in answers and logs.
	ModelName() string

	// Ping makes a cheap request to confirm the provider is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64

	// StopWords end generation when produced.
	StopWords []string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes a chat completion. Zero values use provider defaults.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
