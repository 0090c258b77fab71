package prompting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

type stubStore struct {
	prompts map[string]string
}

func (s *stubStore) Load(name string) (string, error) {
	p, ok := s.prompts[name]
	if !ok {
		return "", errors.New("missing")
	}
	return p, nil
}

func (s *stubStore) Reload() {}

func TestLoad(t *testing.T) {
	store := &stubStore{prompts: map[string]string{"custom": "custom %s", "blank": "  "}}

	assert.Equal(t, "fallback", Load(nil, "custom", "fallback"))
	assert.Equal(t, "custom %s", Load(store, "custom", "fallback"))
	assert.Equal(t, "fallback", Load(store, "missing", "fallback"))
	assert.Equal(t, "fallback", Load(store, "blank", "fallback"))
}

func TestQueryRewrite(t *testing.T) {
	assert.Contains(t, QueryRewrite(nil, "what is entropy?"), "Question: what is entropy?")

	store := &stubStore{prompts: map[string]string{driven.PromptQueryRewrite: "Q=%s"}}
	assert.Equal(t, "Q=why", QueryRewrite(store, "why"))
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "plain list", reply: "entropy, thermodynamics", want: "entropy, thermodynamics"},
		{name: "label and quotes", reply: `Keywords: "entropy", 'heat'`, want: "entropy, heat"},
		{name: "thinking removed", reply: "<think>the user asks about heat</think>heat, energy", want: "heat, energy"},
		{name: "first line only", reply: "heat, energy\nThese are the keywords.", want: "heat, energy"},
		{name: "empty entries dropped", reply: "heat,, ,energy,", want: "heat, energy"},
		{name: "nothing usable", reply: "<think>...</think>", want: "original question"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Keywords(tc.reply, "original question"))
		})
	}
}
