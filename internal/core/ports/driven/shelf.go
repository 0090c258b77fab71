package driven

import "context"

// Shelf stores book files under the library root at their canonical paths.
// All paths are library-relative and slash-separated.
type Shelf interface {
	// Place copies the file at src to relPath, creating directories.
	// It fails if relPath already exists.
	Place(ctx context.Context, src, relPath string) error

	// Move relocates a stored file and prunes emptied directories.
	Move(ctx context.Context, fromRel, toRel string) error

	// Remove deletes a stored file and prunes emptied directories.
	// Missing files are ignored.
	Remove(ctx context.Context, relPath string) error

	// Exists returns true if relPath holds a file.
	Exists(relPath string) bool

	// Abs returns the absolute filesystem path for relPath.
	Abs(relPath string) string

	// Root returns the library root directory.
	Root() string
}
