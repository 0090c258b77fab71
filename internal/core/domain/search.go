package domain

// SearchHit is a chunk-level similarity match from the semantic index.
type SearchHit struct {
	ChunkRef

	// Score is the cosine similarity between the query and the chunk.
	Score float64
}

// SearchResult is a book-level result aggregated from chunk hits.
type SearchResult struct {
	// BookID identifies the matched book.
	BookID string

	// Book is the hydrated catalog entry.
	Book BookEntry

	// Score is the aggregated relevance: the best chunk similarity.
	Score float64

	// ChunkIDs are the supporting chunks ordered by contribution.
	ChunkIDs []string

	// ChunkScores holds the similarity for each entry of ChunkIDs.
	ChunkScores []float64
}

// SearchResponse carries the results of a query along with any
// non-fatal warnings raised while producing them.
type SearchResponse struct {
	// Results are ordered by descending score.
	Results []SearchResult

	// Warnings are consistency problems that did not stop the search.
	Warnings []string
}

// ContextBlock is the bounded assembly of retrieved text for an LLM.
type ContextBlock struct {
	// Text is the assembled context.
	Text string

	// ChunkIDs lists the chunks that contributed, in inclusion order.
	ChunkIDs []string

	// Tokens is the estimated token count of Text.
	Tokens int

	// Truncated is true if the last included chunk was cut to fit.
	Truncated bool
}

// IsEmpty returns true if no chunks were included.
func (c ContextBlock) IsEmpty() bool {
	return len(c.ChunkIDs) == 0
}

// Answer is a response produced by question answering.
type Answer struct {
	// Text is the LLM's reply.
	Text string

	// Sources are the books whose content was supplied as context.
	Sources []SearchResult

	// Warnings are consistency problems surfaced by retrieval.
	Warnings []string
}

// IngestReport describes the outcome of ingesting a file.
type IngestReport struct {
	// Book is the new catalog entry.
	Book BookEntry

	// Chunks is the number of chunks that were embedded and stored.
	Chunks int

	// FailedChunks is the number of chunks whose embedding failed.
	FailedChunks int

	// Warnings describes partial failures.
	Warnings []string
}

// IndexReport describes the consistency of the semantic index against
// the catalog.
type IndexReport struct {
	// IndexedChunks is the number of vectors in the index.
	IndexedChunks int

	// CatalogChunks is the number of chunks stored in the catalog.
	CatalogChunks int

	// UnindexedBooks are searchable books with no vectors in the index.
	UnindexedBooks []string

	// StaleChunks are index entries with no matching catalog chunk.
	StaleChunks []string
}

// Consistent returns true if the index matches the catalog.
func (r IndexReport) Consistent() bool {
	return len(r.UnindexedBooks) == 0 && len(r.StaleChunks) == 0 && r.IndexedChunks == r.CatalogChunks
}
