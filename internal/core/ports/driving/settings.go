package driving

import "github.com/custodia-labs/librarian/internal/core/domain"

// SettingsService reads and edits the persisted settings.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error
	GetDefaults() domain.AppSettings

	// Set parses value according to the type of key (e.g. "retrieval.top_k"
	// takes an integer, "llm.timeout" a duration) and stores it.
	Set(key, value string) error

	// Keys lists every key Set accepts, in display order.
	Keys() []string

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate reports the first setting that blocks ingestion or search.
	Validate() error

	// ValidateEmbeddingConfig and ValidateLLMConfig contact the configured
	// provider.
	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error

	GetPipelineConfig() domain.PipelineConfig
}
