package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	for input, want := range map[string]string{
		"":                           "****",
		"abc123":                     "****",
		"12345678":                   "****",
		"sk-1234567890abcdef":        "sk-1...cdef",
		"sk-proj-1234567890abcdefgh": "sk-p...efgh",
	} {
		assert.Equal(t, want, maskAPIKey(input), "input %q", input)
	}
}

func TestDisplayKey(t *testing.T) {
	assert.Equal(t, "(not set)", displayKey(""))
	assert.Equal(t, "sk-1...cdef", displayKey("sk-1234567890abcdef"))
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		def   int
		want  int
	}{
		{"", 1, 1},
		{"3", 1, 3},
		{"5", 1, 5},
		{"1", 3, 1},
		{"0", 2, 2},
		{"6", 2, 2},
		{"-1", 1, 1},
		{"two", 2, 2},
		{"   ", 4, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseChoice(tt.input, 5, tt.def), "input %q", tt.input)
	}
}

func TestSettingsShowCmd(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	out, err := execute(t, "", "settings")

	require.NoError(t, err)
	for _, section := range []string{"[Embedding]", "[LLM]", "[Ingest]", "[Retrieval]", "[Exam]", "[Chat]"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "Top K: 5")
	assert.Contains(t, out, "Warning: embedding provider not configured")

	ts.settings.settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-1234567890abcdef",
	}
	out, err = execute(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_Error(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()
	ts.settings.err = errors.New("unreadable")

	_, err := execute(t, "", "settings", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get settings")
}

func TestSettingsSetCmd(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	out, err := execute(t, "", "settings", "set", "retrieval.top_k", "8")
	require.NoError(t, err)
	assert.Equal(t, "8", ts.settings.set["retrieval.top_k"])
	assert.Contains(t, out, "Set retrieval.top_k = 8")

	out, err = execute(t, "", "settings", "set", "llm.api_key", "sk-ant-abcdefghijkl")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abcdefghijkl", ts.settings.set["llm.api_key"])
	assert.Contains(t, out, "Set llm.api_key = sk-a...ijkl")

	_, err = execute(t, "", "settings", "set", "unknown.key", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute(t, "", "settings", "set", "retrieval.top_k")
	assert.Error(t, err)
}

func TestSettingsKeysCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "", "settings", "keys")

	require.NoError(t, err)
	assert.Equal(t, "embedding.provider\nretrieval.top_k\n", out)
}

func TestSettingsEmbeddingCmd(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	out, err := execute(t, "1\n\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, ts.settings.embedProvider)
	assert.Equal(t, "nomic-embed-text", ts.settings.embedModel)
	assert.Empty(t, ts.settings.embedKey)
	assert.Contains(t, out, "Using Ollama (local) (nomic-embed-text) for embedding.")
}

func TestSettingsEmbeddingCmd_APIKey(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	_, err := execute(t, "2\ncustom-model\nsk-test-key-0000\n", "settings", "embedding")
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, ts.settings.embedProvider)
	assert.Equal(t, "custom-model", ts.settings.embedModel)
	assert.Equal(t, "sk-test-key-0000", ts.settings.embedKey)

	_, err = execute(t, "2\n\n\n", "settings", "embedding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an API key")
}

func TestSettingsLLMCmd_ValidationFails(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()
	ts.settings.err = errors.New("connection refused")

	out, err := execute(t, "1\n\n", "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save LLM provider")
	assert.NotContains(t, out, "for LLM.")
}
