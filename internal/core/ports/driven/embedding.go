package driven

import "context"

// EmbeddingService turns text into vectors for the semantic index. It is
// optional: without it books cannot be added and search is disabled.
// Adapters exist for Ollama and OpenAI.
type EmbeddingService interface {
	// Embed returns the vector for one chunk or query.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 when unknown until the first call.
	Dimensions() int

	// ModelName is recorded on every chunk as its embedding version, so
	// vectors from different models are never compared.
	ModelName() string

	// Ping makes a cheap request to confirm the provider is reachable.
	Ping(ctx context.Context) error

	Close() error
}
