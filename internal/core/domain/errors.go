package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Validation Errors.

	// ErrInvalidClassification indicates a classification code that does not
	// match the grammar: three digits, optionally followed by a decimal subdivision.
	ErrInvalidClassification = errors.New("invalid classification code")

	// ErrInvalidID indicates a malformed book identifier.
	ErrInvalidID = errors.New("invalid book id")

	// Catalog Errors.

	// ErrDuplicateBook indicates the content hash is already catalogued.
	ErrDuplicateBook = errors.New("duplicate book")

	// ErrPathCollision indicates a canonical path is claimed by another book.
	ErrPathCollision = errors.New("canonical path already in use")

	// ErrCatalogCorrupt indicates the persisted catalog cannot be read.
	// This is fatal: the catalog must be restored from a backup.
	ErrCatalogCorrupt = errors.New("catalog is corrupt; restore it from a backup")

	// Ingestion Errors.

	// ErrUnsupportedFormat indicates no extractor handles the file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrIngestion indicates extraction or embedding failed for a whole file.
	ErrIngestion = errors.New("ingestion failed")

	// Index Errors.

	// ErrIndexInconsistency indicates the semantic index references chunks
	// the catalog does not hold.
	ErrIndexInconsistency = errors.New("index inconsistent with catalog")

	// ErrDimensionMismatch indicates a vector's size differs from the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Provider Errors.

	// ErrProvider indicates an embedding or LLM call failed after retries.
	ErrProvider = errors.New("provider error")

	// ErrRateLimited indicates the provider rejected a call for exceeding
	// its request quota. Callers should back off before retrying.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Question answering and exam generation are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and semantic search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Exam Errors.

	// ErrInsufficientCatalog indicates too few catalogued books for an exam.
	ErrInsufficientCatalog = errors.New("insufficient catalog")

	// ErrGenerationFailed indicates the LLM never produced a valid question set.
	ErrGenerationFailed = errors.New("question generation failed")
)
