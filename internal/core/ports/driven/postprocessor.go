package driven

import (
	"context"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// PostProcessor processes extracted text to produce chunks.
// PostProcessors are chained in a pipeline (e.g., whitespace folding, chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes extracted text and returns chunks.
	// Text-rewriting processors modify doc in place and pass chunks through.
	// Chunk-creating processors (e.g., chunker) receive nil and return new chunks.
	Process(ctx context.Context, doc *domain.ExtractedText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the text through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.ExtractedText) ([]domain.Chunk, error)
}
