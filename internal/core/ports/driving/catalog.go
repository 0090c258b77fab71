package driving

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// CatalogService manages catalog entries.
type CatalogService interface {
	// Add records a new book with its embedded chunks and returns its ID.
	// Fails with domain.ErrDuplicateBook if the content hash is catalogued.
	Add(ctx context.Context, book domain.NewBook) (string, error)

	// Get retrieves a book by ID.
	Get(ctx context.Context, id string) (*domain.BookEntry, error)

	// Edit applies a patch. Classification or title changes relocate the file.
	Edit(ctx context.Context, id string, patch domain.BookPatch) (*domain.BookEntry, error)

	// Remove deletes a book, its chunks, its vectors and its stored file.
	Remove(ctx context.Context, id string) error

	// List returns books matching the filter.
	List(ctx context.Context, filter domain.BookFilter) ([]domain.BookEntry, error)

	// ExistsISBN reports whether a book with the ISBN is catalogued.
	// The all-zero placeholder ISBN never matches.
	ExistsISBN(ctx context.Context, isbn string) (bool, error)

	// Find performs a keyword lookup over catalog metadata.
	Find(ctx context.Context, query string, limit int) ([]domain.BookEntry, error)

	// Path returns the absolute path of the stored file.
	Path(ctx context.Context, id string) (string, error)

	// Content returns the book's stored text, reassembled from its chunks.
	Content(ctx context.Context, id string) (string, error)
}
