package driving

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// QueryService provides semantic search capabilities to external actors.
type QueryService interface {
	// Search returns at most topK books ranked by relevance to the query.
	Search(ctx context.Context, query string, topK int) (*domain.SearchResponse, error)
}

// QuestionService answers questions from the library's contents.
type QuestionService interface {
	// Ask retrieves relevant excerpts and asks the LLM to answer.
	// The conversation is remembered across calls until Reset.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// Reset forgets the conversation history.
	Reset()
}

// ExamService generates exams from sampled books.
type ExamService interface {
	// Generate samples bookCount catalogued books and writes questions for each.
	Generate(ctx context.Context, bookCount int) (*domain.Exam, error)
}
