// Package chunker provides a fixed-size, overlapping text chunker.
// Sizes and offsets are counted in runes so multi-byte text is never
// split inside a character.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 200

// Processor splits extracted text into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not smaller than the chunk size is clamped to a
// quarter of the chunk size.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the effective chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the effective overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the text into chunks. Input chunks are ignored.
// Each chunk after the first starts chunkSize-overlap runes after the
// previous one; the last chunk ends at the end of the text.
func (p *Processor) Process(ctx context.Context, doc *domain.ExtractedText, _ []domain.Chunk) ([]domain.Chunk, error) {
	runes := []rune(doc.Content)
	total := len(runes)
	if total == 0 {
		return nil, nil
	}

	stride := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, total/stride+1)

	for start := 0; ; start += stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			BookID:   doc.BookID,
			Sequence: len(chunks),
			Offset:   start,
			Content:  string(runes[start:end]),
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}
