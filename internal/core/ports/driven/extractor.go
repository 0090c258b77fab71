package driven

import "context"

// Extractor turns a stored file into plain text.
// Each extractor handles specific file types (e.g. txt, md, html).
type Extractor interface {
	// SupportedTypes returns the lowercase file extensions, without dots,
	// this extractor handles.
	SupportedTypes() []string

	// Extract reads the file at path and returns its text.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorRegistry selects the extractor for a file type.
type ExtractorRegistry interface {
	// Extract dispatches to the extractor registered for fileType.
	// Returns domain.ErrUnsupportedFormat when none is registered.
	Extract(ctx context.Context, fileType, path string) (string, error)

	// Supports returns true if an extractor handles fileType.
	Supports(fileType string) bool

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedTypes returns every registered file type, sorted.
	SupportedTypes() []string
}
