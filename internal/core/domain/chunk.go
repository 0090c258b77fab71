package domain

// Chunk is an embedded span of a book's extracted text.
// Chunks for a book form a contiguous sequence ordered by Sequence.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// BookID links to the owning BookEntry.
	BookID string

	// Sequence is the 0-based position within the book.
	Sequence int

	// Offset is the rune offset of the chunk's first character in the
	// extracted text.
	Offset int

	// Content is the text span.
	Content string

	// Embedding is the normalised vector for this span.
	// It is immutable once stored.
	Embedding []float32

	// EmbeddingVersion tags the provider/model that produced Embedding.
	EmbeddingVersion string
}

// ChunkRef is the minimal chunk identity carried by the semantic index.
type ChunkRef struct {
	// ChunkID identifies the chunk.
	ChunkID string

	// BookID identifies the owning book.
	BookID string

	// Sequence is the chunk's position within the book.
	Sequence int

	// EmbeddingVersion tags the vector's provider/model.
	EmbeddingVersion string
}

// Ref returns the index reference for this chunk.
func (c *Chunk) Ref() ChunkRef {
	return ChunkRef{
		ChunkID:          c.ID,
		BookID:           c.BookID,
		Sequence:         c.Sequence,
		EmbeddingVersion: c.EmbeddingVersion,
	}
}

// ExtractedText is a book's extracted text on its way through the
// chunking pipeline.
type ExtractedText struct {
	// BookID is the book the text belongs to.
	BookID string

	// Content is the full text. Pipeline stages may rewrite it before
	// chunking.
	Content string
}
