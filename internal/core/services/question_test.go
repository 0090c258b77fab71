package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

func newQuestionService(env *testEnv, llm driven.LLMService, prompts driven.PromptStore, settings domain.AppSettings) *QuestionService {
	query := NewQueryService(env.catalog, env.index, env.embedder, env.indexSvc, settings.Retrieval)
	builder := NewContextBuilder(env.catalog, settings.Retrieval.OverflowTolerance)
	return NewQuestionService(query, builder, llm, prompts, settings)
}

func TestQuestionService_Ask(t *testing.T) {
	env := newTestEnv(t)
	book := env.addBook(t, "Waves", "530", repeat("physics", 8))
	env.addBook(t, "Bread", "641.815", repeat("cooking", 8))

	llm := &mockLLMService{replies: []string{"Waves carry energy."}}
	svc := newQuestionService(env, llm, nil, domain.DefaultAppSettings())

	answer, err := svc.Ask(context.Background(), "  What does physics say about waves?  ")
	require.NoError(t, err)

	assert.Equal(t, "Waves carry energy.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, book.ID, answer.Sources[0].BookID)

	req := llm.lastRequest()
	require.Len(t, req, 2)
	assert.Equal(t, "system", req[0].Role)
	assert.Equal(t, domain.DefaultSystemPrompt, req[0].Content)
	assert.Equal(t, "user", req[1].Role)
	assert.Contains(t, req[1].Content, "[Waves, part 1]")
	assert.Contains(t, req[1].Content, "What does physics say about waves?")
	assert.NotContains(t, req[1].Content, "Bread")
}

func TestQuestionService_RemembersConversation(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "Waves", "530", repeat("physics", 8))

	llm := &mockLLMService{replies: []string{"first answer", "second answer"}}
	svc := newQuestionService(env, llm, nil, domain.DefaultAppSettings())
	ctx := context.Background()

	_, err := svc.Ask(ctx, "physics?")
	require.NoError(t, err)
	_, err = svc.Ask(ctx, "more physics?")
	require.NoError(t, err)

	req := llm.lastRequest()
	require.Len(t, req, 4)
	assert.Equal(t, driven.ChatMessage{Role: "user", Content: "physics?"}, req[1])
	assert.Equal(t, driven.ChatMessage{Role: "assistant", Content: "first answer"}, req[2])
	assert.Contains(t, req[3].Content, "more physics?")

	assert.Len(t, svc.History(), 4)

	svc.Reset()
	assert.Empty(t, svc.History())

	llm.replies = []string{"fresh"}
	_, err = svc.Ask(ctx, "physics again?")
	require.NoError(t, err)
	assert.Len(t, llm.lastRequest(), 2)
}

func TestQuestionService_MemoryBudgetDropsOldestTurns(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "Waves", "530", repeat("physics", 8))

	settings := domain.DefaultAppSettings()
	settings.Chat.MemoryTokens = 10
	llm := &mockLLMService{replies: []string{strings.Repeat("a", 24)}}
	svc := newQuestionService(env, llm, nil, settings)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Ask(ctx, "physics?")
		require.NoError(t, err)
	}

	history := svc.History()
	require.NotEmpty(t, history)
	assert.LessOrEqual(t, historyTokens(history), 10)
	assert.Equal(t, "assistant", history[len(history)-1].Role)
}

func TestQuestionService_RewritesQuery(t *testing.T) {
	env := newTestEnv(t)
	book := env.addBook(t, "Rome", "937", repeat("history", 8))

	llm := &mockLLMService{replies: []string{"ok"}, rewrite: "history"}
	svc := newQuestionService(env, llm, nil, domain.DefaultAppSettings())

	answer, err := svc.Ask(context.Background(), "Tell me about the old empire")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, book.ID, answer.Sources[0].BookID)
	assert.Contains(t, llm.lastRequest()[1].Content, "Tell me about the old empire")
}

func TestQuestionService_RewriteFailureFallsBack(t *testing.T) {
	env := newTestEnv(t)
	book := env.addBook(t, "Rome", "937", repeat("history", 8))

	llm := &mockLLMService{replies: []string{"ok"}, rewriteErr: errors.New("rewrite down")}
	svc := newQuestionService(env, llm, nil, domain.DefaultAppSettings())

	answer, err := svc.Ask(context.Background(), "history")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, book.ID, answer.Sources[0].BookID)
}

func TestQuestionService_NoExcerpts(t *testing.T) {
	env := newTestEnv(t)
	settings := domain.DefaultAppSettings()
	settings.Chat.RewriteQuery = false

	llm := &mockLLMService{replies: []string{"I could not find that."}}
	svc := newQuestionService(env, llm, nil, settings)

	answer, err := svc.Ask(context.Background(), "music?")
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, llm.lastRequest()[1].Content, noExcerpts)
}

func TestQuestionService_CustomPromptAndThinking(t *testing.T) {
	env := newTestEnv(t)
	env.addBook(t, "Waves", "530", repeat("physics", 8))

	settings := domain.DefaultAppSettings()
	settings.LLM.ExcludeThinking = true
	settings.LLM.SystemPrompt = "You are terse."
	prompts := mockPromptStore{driven.PromptAnswer: "Q=%[2]s\nCTX=%[1]s"}

	llm := &mockLLMService{replies: []string{"<think>hmm</think>\nShort answer."}}
	svc := newQuestionService(env, llm, prompts, settings)

	answer, err := svc.Ask(context.Background(), "physics?")
	require.NoError(t, err)
	assert.Equal(t, "Short answer.", answer.Text)

	req := llm.lastRequest()
	assert.Equal(t, "You are terse.", req[0].Content)
	assert.True(t, strings.HasPrefix(req[1].Content, "Q=physics?\nCTX=[Waves, part"))
	assert.Equal(t, "Short answer.", svc.History()[1].Content)
}

func TestQuestionService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := newQuestionService(env, nil, nil, domain.DefaultAppSettings()).Ask(ctx, "physics?")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	llm := &mockLLMService{replies: []string{"x"}}
	_, err = newQuestionService(env, llm, nil, domain.DefaultAppSettings()).Ask(ctx, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	failing := &mockLLMService{chatErr: errors.New("overloaded")}
	svc := newQuestionService(env, failing, nil, domain.DefaultAppSettings())
	_, err = svc.Ask(ctx, "physics?")
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, retryAttempts, failing.chatCalls())
	assert.Empty(t, svc.History())
}
