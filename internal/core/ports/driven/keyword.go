package driven

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// KeywordIndex provides keyword lookup over catalog metadata
// (titles, authors, descriptions and notes). Backed by Bleve.
type KeywordIndex interface {
	// Index adds or updates a book's metadata.
	Index(ctx context.Context, book *domain.BookEntry) error

	// Delete removes a book from the index.
	Delete(ctx context.Context, bookID string) error

	// Search returns matching book IDs with scores, best first.
	Search(ctx context.Context, query string, limit int) ([]KeywordHit, error)

	// Close releases resources.
	Close() error
}

// KeywordHit represents a keyword match.
type KeywordHit struct {
	// BookID is the matched book.
	BookID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}
