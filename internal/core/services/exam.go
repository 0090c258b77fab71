package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
	"github.com/custodia-labs/librarian/internal/validate"
)

// Ensure ExamService implements the interface.
var _ driving.ExamService = (*ExamService)(nil)

// errMalformedQuestions marks an LLM reply that is not a valid question set.
var errMalformedQuestions = errors.New("malformed question set")

// ExamService writes multiple-choice exams from sampled books.
type ExamService struct {
	catalog  driven.CatalogStore
	builder  *ContextBuilder
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.ExamSettings
	budget   int
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExamService creates an exam service. rng drives book sampling; a nil
// rng is seeded randomly. The llm is optional; without it Generate fails
// with domain.ErrLLMUnavailable.
func NewExamService(
	catalog driven.CatalogStore,
	builder *ContextBuilder,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.AppSettings,
	rng *rand.Rand,
) *ExamService {
	defaults := domain.DefaultAppSettings()
	exam := settings.Exam
	if exam.Books <= 0 {
		exam.Books = defaults.Exam.Books
	}
	if exam.ChunksPerBook <= 0 {
		exam.ChunksPerBook = defaults.Exam.ChunksPerBook
	}
	if exam.MaxAttempts <= 0 {
		exam.MaxAttempts = defaults.Exam.MaxAttempts
	}
	budget := settings.Retrieval.TokenBudget
	if budget <= 0 {
		budget = defaults.Retrieval.TokenBudget
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ExamService{
		catalog:  catalog,
		builder:  builder,
		llm:      llm,
		prompts:  prompts,
		settings: exam,
		budget:   budget,
		now:      time.Now,
		rng:      rng,
	}
}

// Generate samples bookCount catalogued books without replacement and asks
// the LLM for questions on each book's leading chunks. A non-positive
// bookCount uses the configured default.
func (s *ExamService) Generate(ctx context.Context, bookCount int) (*domain.Exam, error) {
	logger.Section("Exam")
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if bookCount <= 0 {
		bookCount = s.settings.Books
	}

	// The zero filter excludes removed books only; degraded books still qualify.
	books, err := s.catalog.ListBooks(ctx, domain.BookFilter{})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if len(books) < bookCount {
		return nil, fmt.Errorf("%w: %d books, %d requested", domain.ErrInsufficientCatalog, len(books), bookCount)
	}

	exam := &domain.Exam{GeneratedAt: s.now().UTC()}
	for _, book := range s.sample(books, bookCount) {
		section, err := s.section(ctx, book)
		if err != nil {
			return nil, err
		}
		exam.Sections = append(exam.Sections, section)
	}

	logger.Info("Generated %d questions over %d books", exam.QuestionCount(), len(exam.Sections))
	return exam, nil
}

// sample picks n books uniformly without replacement with a partial
// Fisher-Yates shuffle of a copy of books.
func (s *ExamService) sample(books []domain.BookEntry, n int) []domain.BookEntry {
	pool := append([]domain.BookEntry(nil), books...)

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

func (s *ExamService) section(ctx context.Context, book domain.BookEntry) (domain.ExamSection, error) {
	chunks, err := s.catalog.GetChunks(ctx, book.ID)
	if err != nil {
		return domain.ExamSection{}, fmt.Errorf("load chunks of %s: %w", book.ID, err)
	}
	if len(chunks) > s.settings.ChunksPerBook {
		chunks = chunks[:s.settings.ChunksPerBook]
	}

	block := s.builder.Assemble([]ContextSource{{Title: book.Title, Chunks: chunks}}, s.budget)
	prompt := fmt.Sprintf(loadPrompt(s.prompts, driven.PromptExam, defaultExamPrompt), len(block.ChunkIDs), block.Text)
	messages := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}

	var lastErr error
	for attempt := 1; attempt <= s.settings.MaxAttempts; attempt++ {
		reply, err := withRetry(ctx, "exam questions", func(ctx context.Context) (string, error) {
			return s.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: 0.7})
		})
		if err != nil {
			return domain.ExamSection{}, fmt.Errorf("%w: %q: %w", domain.ErrGenerationFailed, book.Title, err)
		}

		questions, err := ParseQuestions(reply)
		if err == nil {
			return domain.ExamSection{
				Book:      book,
				BookID:    book.ID,
				Title:     book.Title,
				ChunkIDs:  block.ChunkIDs,
				Questions: questions,
			}, nil
		}
		lastErr = err
		logger.Debug("questions for %q rejected (attempt %d/%d): %v", book.Title, attempt, s.settings.MaxAttempts, err)
	}

	return domain.ExamSection{}, fmt.Errorf("%w: %q: %w", domain.ErrGenerationFailed, book.Title, lastErr)
}

// ParseQuestions decodes an LLM reply into validated questions. The reply
// may wrap the JSON array in a ```json fence and reasoning blocks.
func ParseQuestions(reply string) ([]domain.Question, error) {
	raw := domain.StripThinking(reply)
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in reply", errMalformedQuestions)
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedQuestions, err)
	}

	for i := range questions {
		q := &questions[i]
		q.CorrectChoice = strings.ToUpper(strings.TrimSpace(q.CorrectChoice))
		if err := validate.Struct(q); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", errMalformedQuestions, i+1, err)
		}
		if strings.TrimSpace(q.Choice(q.CorrectChoice)) == "" {
			return nil, fmt.Errorf("%w: question %d: correct choice %s is blank", errMalformedQuestions, i+1, q.CorrectChoice)
		}
	}
	return questions, nil
}
