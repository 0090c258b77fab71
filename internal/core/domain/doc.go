// Package domain defines the core business entities for Librarian.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - BookEntry: A catalogued book with its classification and storage path
//   - Chunk: An embedded span of a book's extracted text
//   - SearchHit / SearchResult: Chunk-level and book-level retrieval results
//   - Exam: A generated question set drawn from sampled books
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
