package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
)

// Ensure QuestionService implements the interface.
var _ driving.QuestionService = (*QuestionService)(nil)

// QuestionService answers questions from retrieved book excerpts and
// remembers the conversation.
type QuestionService struct {
	query    driving.QueryService
	builder  *ContextBuilder
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.AppSettings

	mu      sync.Mutex
	history []driven.ChatMessage
}

// NewQuestionService creates a question service. The llm is optional;
// without it Ask fails with domain.ErrLLMUnavailable.
func NewQuestionService(
	query driving.QueryService,
	builder *ContextBuilder,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.AppSettings,
) *QuestionService {
	if strings.TrimSpace(settings.LLM.SystemPrompt) == "" {
		settings.LLM.SystemPrompt = domain.DefaultSystemPrompt
	}
	return &QuestionService{
		query:    query,
		builder:  builder,
		llm:      llm,
		prompts:  prompts,
		settings: settings,
	}
}

// Ask searches the library for the question, passes the best excerpts to
// the LLM together with the conversation so far, and records the turn.
func (s *QuestionService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	searchText := question
	if s.settings.Chat.RewriteQuery {
		keywords, err := s.llm.RewriteQuery(ctx, question)
		switch {
		case err != nil:
			logger.Warn("query rewrite failed, searching the question as asked: %v", err)
		case strings.TrimSpace(keywords) != "":
			logger.Debug("Rewrote %q to %q", question, keywords)
			searchText = keywords
		}
	}

	resp, err := s.query.Search(ctx, searchText, s.settings.Retrieval.TopK)
	if err != nil {
		return nil, err
	}

	block, err := s.builder.Build(ctx, resp.Results, s.settings.Retrieval.TokenBudget)
	if err != nil {
		return nil, err
	}
	excerpts := block.Text
	if block.IsEmpty() {
		excerpts = noExcerpts
	}
	prompt := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptAnswer, defaultAnswerPrompt), excerpts, question)

	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]driven.ChatMessage, 0, len(s.history)+2)
	messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: s.settings.LLM.SystemPrompt})
	messages = append(messages, s.history...)
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: prompt})

	reply, err := withRetry(ctx, "chat", func(ctx context.Context) (string, error) {
		return s.llm.Chat(ctx, messages, driven.ChatOptions{})
	})
	if err != nil {
		return nil, err
	}
	if s.settings.LLM.ExcludeThinking {
		reply = domain.StripThinking(reply)
	}

	s.remember(
		driven.ChatMessage{Role: driven.RoleUser, Content: question},
		driven.ChatMessage{Role: driven.RoleAssistant, Content: reply},
	)

	return &domain.Answer{
		Text:     reply,
		Sources:  resp.Results,
		Warnings: resp.Warnings,
	}, nil
}

// remember appends a turn and drops the oldest messages while the
// history exceeds the memory budget. The caller holds s.mu.
func (s *QuestionService) remember(turn ...driven.ChatMessage) {
	s.history = append(s.history, turn...)

	limit := s.settings.Chat.MemoryTokens
	if limit <= 0 {
		return
	}
	for len(s.history) > 0 && historyTokens(s.history) > limit {
		s.history = s.history[1:]
	}
}

func historyTokens(msgs []driven.ChatMessage) int {
	n := 0
	for _, m := range msgs {
		n += EstimateTokens(m.Content)
	}
	return n
}

// History returns a copy of the remembered conversation.
func (s *QuestionService) History() []driven.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]driven.ChatMessage(nil), s.history...)
}

// Reset forgets the conversation history.
func (s *QuestionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
