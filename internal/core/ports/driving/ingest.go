package driving

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// IngestService adds files to the library.
type IngestService interface {
	// Ingest extracts, chunks and embeds a file and records it in the catalog.
	// A book whose chunks only partly embedded is recorded as degraded and
	// the report carries a warning.
	Ingest(ctx context.Context, path string, meta domain.BookMetadata, opts domain.IngestOptions) (*domain.IngestReport, error)
}
