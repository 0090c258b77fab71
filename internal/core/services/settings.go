package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedTimeout      = "embedding.timeout"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTimeout        = "llm.timeout"
	keyLLMSystemPrompt   = "llm.system_prompt"
	keyLLMExcludeThink   = "llm.exclude_thinking"
	keyIngestWorkers     = "ingest.workers"
	keyIngestRPS         = "ingest.requests_per_second"
	keyIngestLibraryRoot = "ingest.library_root"
	keyChunkSize         = "pipeline.chunker.chunk_size"
	keyChunkOverlap      = "pipeline.chunker.overlap"
	keyTopK              = "retrieval.top_k"
	keyHitsPerBook       = "retrieval.hits_per_book"
	keyMinScore          = "retrieval.min_score"
	keyTokenBudget       = "retrieval.token_budget"
	keyOverflowTolerance = "retrieval.overflow_tolerance"
	keyExamBooks         = "exam.books"
	keyExamChunks        = "exam.chunks_per_book"
	keyExamAttempts      = "exam.max_attempts"
	keyChatMemory        = "chat.memory_tokens"
	keyChatRewrite       = "chat.rewrite_query"
)

type settingKind int

const (
	kindString settingKind = iota
	kindProvider
	kindInt
	kindFloat
	kindBool
	kindDuration
)

// settableKeys lists every key accepted by Set, in display order.
var settableKeys = []struct {
	key  string
	kind settingKind
}{
	{keyEmbedProvider, kindProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyEmbedTimeout, kindDuration},
	{keyLLMProvider, kindProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyLLMTimeout, kindDuration},
	{keyLLMSystemPrompt, kindString},
	{keyLLMExcludeThink, kindBool},
	{keyIngestWorkers, kindInt},
	{keyIngestRPS, kindFloat},
	{keyIngestLibraryRoot, kindString},
	{keyChunkSize, kindInt},
	{keyChunkOverlap, kindInt},
	{keyTopK, kindInt},
	{keyHitsPerBook, kindInt},
	{keyMinScore, kindFloat},
	{keyTokenBudget, kindInt},
	{keyOverflowTolerance, kindFloat},
	{keyExamBooks, kindInt},
	{keyExamChunks, kindInt},
	{keyExamAttempts, kindInt},
	{keyChatMemory, kindInt},
	{keyChatRewrite, kindBool},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
			Timeout:  s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
		},
		LLM: domain.LLMSettings{
			Provider:        s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:           s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:         s.configStore.GetString(keyLLMBaseURL),
			APIKey:          s.configStore.GetString(keyLLMAPIKey),
			Timeout:         s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
			SystemPrompt:    s.getString(keyLLMSystemPrompt, defaults.LLM.SystemPrompt),
			ExcludeThinking: s.getBool(keyLLMExcludeThink, defaults.LLM.ExcludeThinking),
		},
		Ingest: domain.IngestSettings{
			Workers:           s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
			RequestsPerSecond: s.getFloat(keyIngestRPS, defaults.Ingest.RequestsPerSecond),
			LibraryRoot:       s.getString(keyIngestLibraryRoot, defaults.Ingest.LibraryRoot),
		},
		Pipeline: s.GetPipelineConfig(),
		Retrieval: domain.RetrievalSettings{
			TopK:              s.getInt(keyTopK, defaults.Retrieval.TopK),
			HitsPerBook:       s.getInt(keyHitsPerBook, defaults.Retrieval.HitsPerBook),
			MinScore:          s.getFloat(keyMinScore, defaults.Retrieval.MinScore),
			TokenBudget:       s.getInt(keyTokenBudget, defaults.Retrieval.TokenBudget),
			OverflowTolerance: s.getFloat(keyOverflowTolerance, defaults.Retrieval.OverflowTolerance),
		},
		Exam: domain.ExamSettings{
			Books:         s.getInt(keyExamBooks, defaults.Exam.Books),
			ChunksPerBook: s.getInt(keyExamChunks, defaults.Exam.ChunksPerBook),
			MaxAttempts:   s.getInt(keyExamAttempts, defaults.Exam.MaxAttempts),
		},
		Chat: domain.ChatSettings{
			MemoryTokens: s.getInt(keyChatMemory, defaults.Chat.MemoryTokens),
			RewriteQuery: s.getBool(keyChatRewrite, defaults.Chat.RewriteQuery),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMSystemPrompt, settings.LLM.SystemPrompt},
		{keyLLMExcludeThink, settings.LLM.ExcludeThinking},
		{keyIngestWorkers, settings.Ingest.Workers},
		{keyIngestRPS, settings.Ingest.RequestsPerSecond},
		{keyIngestLibraryRoot, settings.Ingest.LibraryRoot},
		{keyTopK, settings.Retrieval.TopK},
		{keyHitsPerBook, settings.Retrieval.HitsPerBook},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyTokenBudget, settings.Retrieval.TokenBudget},
		{keyOverflowTolerance, settings.Retrieval.OverflowTolerance},
		{keyExamBooks, settings.Exam.Books},
		{keyExamChunks, settings.Exam.ChunksPerBook},
		{keyExamAttempts, settings.Exam.MaxAttempts},
		{keyChatMemory, settings.Chat.MemoryTokens},
		{keyChatRewrite, settings.Chat.RewriteQuery},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets and timeouts are only written when set.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Embedding.Timeout > 0 {
		if err := s.configStore.Set(keyEmbedTimeout, settings.Embedding.Timeout.String()); err != nil {
			return fmt.Errorf("save embedding timeout: %w", err)
		}
	}
	if settings.LLM.Timeout > 0 {
		if err := s.configStore.Set(keyLLMTimeout, settings.LLM.Timeout.String()); err != nil {
			return fmt.Errorf("save llm timeout: %w", err)
		}
	}

	return nil
}

// Set updates a single setting by key, parsing value for the key's type.
func (s *SettingsService) Set(key, value string) error {
	for _, k := range settableKeys {
		if k.key != key {
			continue
		}
		parsed, err := parseSetting(k.kind, value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		if err := s.configStore.Set(key, parsed); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

// Keys lists the settable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settableKeys))
	for i, k := range settableKeys {
		keys[i] = k.key
	}
	return keys
}

func parseSetting(kind settingKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindProvider:
		p := domain.AIProvider(raw)
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", raw)
		}
		return p.String(), nil
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case kindBool:
		return strconv.ParseBool(raw)
	case kindDuration:
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return raw, nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the settings needed for ingestion and search.
// An embedding provider is always required; the LLM is optional and
// only needed for questions and exams.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}

	pipeline := settings.Pipeline.GetProcessorConfig("chunker")
	if size, ok := pipeline["chunk_size"].(int); ok && size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", domain.ErrInvalidInput)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput)
	}
	if settings.Retrieval.MinScore < 0 || settings.Retrieval.MinScore >= 1 {
		return fmt.Errorf("%w: retrieval.min_score must be in [0, 1)", domain.ErrInvalidInput)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat distinguishes an explicit zero from a missing key, so a
// relevance threshold of 0 can be configured.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	defaults := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		defaults.Processors = processors
	}

	for _, name := range defaults.Processors {
		cfg := s.loadProcessorConfig("pipeline." + name + ".")
		if len(cfg) == 0 {
			continue
		}
		if defaults.ProcessorConfigs == nil {
			defaults.ProcessorConfigs = make(map[string]map[string]any)
		}
		existing := defaults.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		for k, v := range cfg {
			existing[k] = v
		}
		defaults.ProcessorConfigs[name] = existing
	}

	return defaults
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	for _, key := range []string{"chunk_size", "overlap"} {
		if _, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = s.configStore.GetInt(prefix + key)
		}
	}
	return cfg
}
