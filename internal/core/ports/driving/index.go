package driving

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// IndexService maintains the semantic index.
type IndexService interface {
	// Rebuild reconstructs the index from the catalog.
	Rebuild(ctx context.Context) error

	// Verify compares the index with the catalog without changing either.
	Verify(ctx context.Context) (*domain.IndexReport, error)
}
