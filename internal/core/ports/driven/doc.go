// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CatalogStore: Book entry and chunk persistence (SQLite)
//   - VectorIndex: Nearest-neighbour search over chunk vectors
//   - Shelf: Storage of book files under their canonical paths
//   - ExtractorRegistry: Text extraction keyed by file type
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, ingestion and search are disabled.
//   - LLMService: Language model operations. Without it, questions and exams are disabled.
//   - KeywordIndex: Keyword lookup over catalog metadata (Bleve).
//   - PromptStore: User-editable prompt templates. Defaults are used when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
