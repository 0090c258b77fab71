package driven

import "github.com/custodia-labs/librarian/internal/core/domain"

// AIConfigValidator checks provider settings by contacting the provider
// before they are relied on. Settings with no provider chosen pass.
type AIConfigValidator interface {
	ValidateEmbedding(cfg *domain.EmbeddingSettings) error
	ValidateLLM(cfg *domain.LLMSettings) error
}
