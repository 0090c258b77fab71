package env

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/adapters/driven/storage/memory"
)

func TestOverlay_FallsBackToStore(t *testing.T) {
	base := memory.NewConfigStore()
	require.NoError(t, base.Set("retrieval.top_k", 7))
	require.NoError(t, base.Set("llm.provider", "ollama"))

	o := New(base)

	assert.Equal(t, 7, o.GetInt("retrieval.top_k"))
	assert.Equal(t, "ollama", o.GetString("llm.provider"))
	_, ok := o.Get("missing.key")
	assert.False(t, ok)
}

func TestOverlay_EnvironmentWins(t *testing.T) {
	t.Setenv("LIBRARIAN_RETRIEVAL_TOP_K", "12")
	t.Setenv("LIBRARIAN_RETRIEVAL_MIN_SCORE", "0.25")
	t.Setenv("LIBRARIAN_LLM_EXCLUDE_THINKING", "true")
	t.Setenv("LIBRARIAN_LLM_API_KEY", "from-env")
	t.Setenv("LIBRARIAN_PIPELINE_PROCESSORS", "whitespace, chunker")

	base := memory.NewConfigStore()
	require.NoError(t, base.Set("retrieval.top_k", 7))
	require.NoError(t, base.Set("llm.api_key", "from-file"))

	o := New(base)

	assert.Equal(t, 12, o.GetInt("retrieval.top_k"))
	assert.InDelta(t, 0.25, o.GetFloat("retrieval.min_score"), 1e-9)
	assert.True(t, o.GetBool("llm.exclude_thinking"))
	assert.Equal(t, "from-env", o.GetString("llm.api_key"))
	assert.Equal(t, []string{"whitespace", "chunker"}, o.GetStringSlice("pipeline.processors"))

	_, ok := o.Get("llm.exclude_thinking")
	assert.True(t, ok)
}

func TestOverlay_WritesGoToStore(t *testing.T) {
	t.Setenv("LIBRARIAN_LLM_MODEL", "env-model")
	base := memory.NewConfigStore()
	o := New(base)

	require.NoError(t, o.Set("llm.model", "file-model"))

	assert.Equal(t, "file-model", base.GetString("llm.model"))
	assert.Equal(t, "env-model", o.GetString("llm.model"))
	assert.Equal(t, base.Path(), o.Path())
}

func TestOverlay_BindFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("library", "/default/library", "")
	flags.Int("top-k", 3, "")

	base := memory.NewConfigStore()
	require.NoError(t, base.Set("ingest.library_root", "/from/config"))
	require.NoError(t, base.Set("retrieval.top_k", 9))
	o := New(base)

	require.NoError(t, flags.Parse([]string{"--top-k", "4"}))
	require.NoError(t, o.BindFlag("ingest.library_root", flags.Lookup("library")))
	require.NoError(t, o.BindFlag("retrieval.top_k", flags.Lookup("top-k")))
	require.NoError(t, o.BindFlag("unused", nil))

	assert.Equal(t, "/from/config", o.GetString("ingest.library_root"), "unchanged flag must not mask config")
	assert.Equal(t, 4, o.GetInt("retrieval.top_k"))
}
