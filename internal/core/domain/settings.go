package domain

import "time"

// AIProvider names a hosted or local model API.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

type providerTraits struct {
	label     string
	local     bool
	embedding bool
}

var providerTable = map[AIProvider]providerTraits{
	AIProviderOllama:    {label: "Ollama (local)", local: true, embedding: true},
	AIProviderOpenAI:    {label: "OpenAI (cloud)", embedding: true},
	AIProviderAnthropic: {label: "Anthropic (cloud)"},
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := providerTable[p]
	return ok
}

// RequiresAPIKey reports whether p authenticates with a key. Local
// providers never do.
func (p AIProvider) RequiresAPIKey() bool {
	t, ok := providerTable[p]
	return ok && !t.local
}

func (p AIProvider) IsLocal() bool {
	return providerTable[p].local
}

// SupportsEmbeddings reports whether p can serve as the embedding provider.
func (p AIProvider) SupportsEmbeddings() bool {
	return providerTable[p].embedding
}

func (p AIProvider) String() string { return string(p) }

// Description is the label shown in settings prompts.
func (p AIProvider) Description() string {
	if t, ok := providerTable[p]; ok {
		return t.label
	}
	return "Unknown"
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Timeout bounds a single provider request. Zero uses the adapter default.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// SystemPrompt is the librarian persona used for question answering.
	SystemPrompt string

	// ExcludeThinking strips <think>...</think> blocks from replies.
	ExcludeThinking bool

	// Timeout bounds a single provider request. Zero uses the adapter default.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// DefaultSystemPrompt is the librarian persona for question answering.
const DefaultSystemPrompt = "You are a concise librarian assistant. " +
	"Answer the user's question using the supplied book excerpts, " +
	"and name the book each fact comes from. " +
	"If the excerpts do not contain the answer, say so."

// IngestSettings controls the ingestion pipeline.
type IngestSettings struct {
	// Workers bounds concurrent embedding requests.
	Workers int

	// RequestsPerSecond throttles embedding calls; zero disables throttling.
	RequestsPerSecond float64

	// LibraryRoot is the directory holding stored books.
	LibraryRoot string
}

// RetrievalSettings controls search and context assembly.
type RetrievalSettings struct {
	// TopK is the default number of books returned.
	TopK int

	// HitsPerBook is the chunk oversampling factor per requested book.
	HitsPerBook int

	// MinScore drops chunk hits at or below this similarity.
	MinScore float64

	// TokenBudget bounds the context passed to the LLM.
	TokenBudget int

	// OverflowTolerance is the fraction of TokenBudget a final chunk may
	// overflow by before it is truncated instead of dropped.
	OverflowTolerance float64
}

// ExamSettings controls exam generation.
type ExamSettings struct {
	// Books is the default number of sampled books.
	Books int

	// ChunksPerBook is the number of leading chunks used per book.
	ChunksPerBook int

	// MaxAttempts bounds LLM calls per section before giving up.
	MaxAttempts int
}

// ChatSettings controls conversational question answering.
type ChatSettings struct {
	// MemoryTokens bounds the conversation history.
	MemoryTokens int

	// RewriteQuery asks the LLM to reduce questions to search keywords.
	RewriteQuery bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Ingest holds ingestion pipeline settings.
	Ingest IngestSettings

	// Pipeline holds the chunking pipeline configuration.
	Pipeline PipelineConfig

	// Retrieval holds search settings.
	Retrieval RetrievalSettings

	// Exam holds exam generation settings.
	Exam ExamSettings

	// Chat holds question answering settings.
	Chat ChatSettings
}

// DefaultAppSettings leaves both providers unset; nothing is embedded
// until the user picks one.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM:      LLMSettings{SystemPrompt: DefaultSystemPrompt},
		Ingest:   IngestSettings{Workers: 4},
		Pipeline: DefaultPipelineConfig(),
		Retrieval: RetrievalSettings{
			TopK:              5,
			HitsPerBook:       8,
			MinScore:          0.1,
			TokenBudget:       2048,
			OverflowTolerance: 0.1,
		},
		Exam: ExamSettings{
			Books:         3,
			ChunksPerBook: 5,
			MaxAttempts:   3,
		},
		Chat: ChatSettings{
			MemoryTokens: 2048,
			RewriteQuery: true,
		},
	}
}

// AllEmbeddingProviders lists embedding-capable providers, local first.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, p := range AllLLMProviders() {
		if p.SupportsEmbeddings() {
			out = append(out, p)
		}
	}
	return out
}

// AllLLMProviders lists every chat provider in menu order.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions maps well-known embedding models to vector width.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"all-minilm":             384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-ada-002": 1536,
		"text-embedding-3-large": 3072,
	}
}

// PipelineConfig is the ordered list of text stages run before chunks are
// embedded, with free-form options keyed by stage name.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns the options for stage name, or nil.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig collapses whitespace and then cuts 1000-rune
// chunks overlapping by 200.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"whitespace", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 1000,
				"overlap":    200,
			},
		},
	}
}
