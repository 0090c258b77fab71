package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

type stubPrompts struct{}

func (stubPrompts) Load(string) (string, error) { return "", nil }
func (stubPrompts) Reload()                     {}

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitResult_Close(t *testing.T) {
	result := &InitResult{}
	assert.NotPanics(t, result.Close)
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		errContains string
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small"},
		},
		{
			name:        "anthropic has no embeddings",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name:     "unknown provider is unconfigured",
			settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			_ = svc.Close()
		})
	}
}

func TestCreateEmbeddingService_KnownDimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, 1024, svc.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
	}{
		{name: "nil settings", settings: nil, wantNil: true},
		{name: "unconfigured", settings: &domain.LLMSettings{}, wantNil: true},
		{name: "missing api key", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{name: "ollama", settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}},
		{name: "openai", settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}},
		{name: "anthropic", settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-sonnet-latest"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			_ = svc.Close()
		})
	}
}

func TestValidateConfig(t *testing.T) {
	srv := fakeOllama(t)

	t.Run("reachable", func(t *testing.T) {
		assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
		assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	})

	t.Run("unreachable", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		assert.Error(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL}))
		assert.Error(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL}))
	})

	t.Run("unconfigured is valid", func(t *testing.T) {
		assert.NoError(t, ValidateEmbeddingConfig(nil))
		assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{}))
	})
}

func TestCreateAndValidate_Unavailable(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	_, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = CreateAndValidateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestInit(t *testing.T) {
	srv := fakeOllama(t)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}

	result := Init(&settings, stubPrompts{})
	defer result.Close()

	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.EmbeddingService)
	require.NotNil(t, result.LLMService)
	assert.IsType(t, &ratelimit.Service{}, result.EmbeddingService)
	_, aware := result.LLMService.(driven.PromptStoreAware)
	assert.True(t, aware)
}

func TestInit_FallsBackWithWarnings(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: down.URL}

	result := Init(&settings, nil)
	defer result.Close()

	assert.Nil(t, result.EmbeddingService)
	assert.Nil(t, result.LLMService)
	assert.Len(t, result.Warnings, 2)
}

func TestInit_Unconfigured(t *testing.T) {
	settings := domain.DefaultAppSettings()

	result := Init(&settings, nil)

	assert.Nil(t, result.EmbeddingService)
	assert.Nil(t, result.LLMService)
	assert.Empty(t, result.Warnings)
}
