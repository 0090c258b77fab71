package driven

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// CatalogStore persists book entries and their chunks.
// It is the authoritative owner of BookEntry and Chunk lifecycle.
// Backed by SQLite for durable storage.
type CatalogStore interface {
	// CreateBook stores a new book together with its chunks atomically.
	// Returns domain.ErrDuplicateBook if the content hash is taken and
	// domain.ErrPathCollision if the canonical path is taken.
	CreateBook(ctx context.Context, book *domain.BookEntry, chunks []domain.Chunk) error

	// UpdateBook replaces the stored fields of an existing book.
	// Returns domain.ErrNotFound if the book does not exist.
	UpdateBook(ctx context.Context, book *domain.BookEntry) error

	// GetBook retrieves a book by ID.
	GetBook(ctx context.Context, id string) (*domain.BookEntry, error)

	// GetBookByHash retrieves a book by content hash.
	GetBookByHash(ctx context.Context, hash string) (*domain.BookEntry, error)

	// GetBookByPath retrieves the book occupying a canonical path.
	GetBookByPath(ctx context.Context, canonicalPath string) (*domain.BookEntry, error)

	// ListBooks returns books matching the filter, ordered by
	// classification code then title.
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.BookEntry, error)

	// FindByISBN returns books with the given normalised ISBN.
	FindByISBN(ctx context.Context, isbn string) ([]domain.BookEntry, error)

	// DeleteBook removes a book and all of its chunks.
	DeleteBook(ctx context.Context, id string) error

	// GetChunks retrieves all chunks for a book ordered by sequence.
	GetChunks(ctx context.Context, bookID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// EachChunk streams every chunk of every searchable book.
	// Iteration stops at the first error returned by fn.
	EachChunk(ctx context.Context, fn func(domain.Chunk) error) error

	// CountChunks returns the number of chunks of searchable books.
	CountChunks(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
