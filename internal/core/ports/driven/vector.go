package driven

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// VectorIndex provides semantic similarity search operations.
// It is a rebuildable projection of the catalog's chunk vectors: it holds
// vectors keyed by chunk ID but never owns chunk identity.
type VectorIndex interface {
	// Upsert inserts or replaces the vectors of the given chunks as one
	// atomic change. Vectors are normalised on insertion; zero vectors are
	// rejected with domain.ErrInvalidInput and vectors whose dimension
	// differs from the indexed ones with domain.ErrDimensionMismatch.
	Upsert(ctx context.Context, chunks ...domain.Chunk) error

	// Remove deletes a chunk's vector. Missing chunks are ignored.
	Remove(ctx context.Context, chunkID string) error

	// RemoveAllForBook deletes every vector belonging to a book.
	RemoveAllForBook(ctx context.Context, bookID string) error

	// Search returns at most k hits ordered by descending similarity,
	// then ascending sequence, then ascending book ID.
	Search(ctx context.Context, query []float32, k int) ([]domain.SearchHit, error)

	// Rebuild replaces the whole index with the chunks produced by source.
	// Readers observe the previous snapshot until the rebuild completes.
	Rebuild(ctx context.Context, source ChunkSource) error

	// Missing returns the IDs among chunkIDs that are not indexed.
	Missing(chunkIDs []string) []string

	// ChunkIDs returns every indexed chunk ID.
	ChunkIDs() []string

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// ChunkSource streams chunks into a rebuild.
type ChunkSource func(ctx context.Context, fn func(domain.Chunk) error) error
