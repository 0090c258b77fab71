// Package whitespace folds runs of whitespace in extracted text.
package whitespace

import (
	"context"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// Processor collapses every whitespace run to a single space and trims
// the ends. It rewrites the text in place and passes chunks through, so
// it must run before the chunker.
type Processor struct{}

// New creates a whitespace processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process folds whitespace in doc.Content.
func (p *Processor) Process(_ context.Context, doc *domain.ExtractedText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	doc.Content = strings.Join(strings.Fields(doc.Content), " ")
	return chunks, nil
}
