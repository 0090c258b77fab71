// Package filesystem stores book files in a directory tree on local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Shelf = (*Shelf)(nil)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Shelf keeps files under a library root directory.
type Shelf struct {
	root string
}

// New creates a shelf rooted at root, creating the directory if needed.
func New(root string) (*Shelf, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}
	return &Shelf{root: abs}, nil
}

// Root returns the library root directory.
func (s *Shelf) Root() string {
	return s.root
}

// Abs returns the absolute path for a library-relative path.
func (s *Shelf) Abs(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// resolve maps relPath into the root, rejecting paths that escape it.
func (s *Shelf) resolve(relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: bad library path %q", domain.ErrInvalidInput, relPath)
	}
	abs := s.Abs(relPath)
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes the library", domain.ErrInvalidInput, relPath)
	}
	return abs, nil
}

// Exists returns true if relPath holds a file.
func (s *Shelf) Exists(relPath string) bool {
	abs, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Place copies src into the library at relPath.
// The copy is written to a temporary file first, so a failed placement
// never leaves a partial file at relPath.
func (s *Shelf) Place(ctx context.Context, src, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrPathCollision, relPath)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		s.prune(filepath.Dir(dest))
		return fmt.Errorf("create shelf directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".place-*.tmp")
	if err != nil {
		s.prune(filepath.Dir(dest))
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, &ctxReader{ctx: ctx, r: in})
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		s.prune(filepath.Dir(dest))
		if copyErr != nil {
			return fmt.Errorf("copy book: %w", copyErr)
		}
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		s.prune(filepath.Dir(dest))
		return fmt.Errorf("chmod book: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		s.prune(filepath.Dir(dest))
		return fmt.Errorf("place book: %w", err)
	}
	return nil
}

// Move relocates a stored file within the library.
func (s *Shelf) Move(ctx context.Context, fromRel, toRel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := s.resolve(fromRel)
	if err != nil {
		return err
	}
	to, err := s.resolve(toRel)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if _, err := os.Stat(from); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, fromRel)
		}
		return fmt.Errorf("stat book: %w", err)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrPathCollision, toRel)
	}
	if err := os.MkdirAll(filepath.Dir(to), dirPerm); err != nil {
		return fmt.Errorf("create shelf directory: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		s.prune(filepath.Dir(to))
		return fmt.Errorf("move book: %w", err)
	}
	s.prune(filepath.Dir(from))
	return nil
}

// Remove deletes a stored file. Missing files are ignored.
func (s *Shelf) Remove(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove book: %w", err)
	}
	s.prune(filepath.Dir(abs))
	return nil
}

// prune removes empty directories from dir up to, but excluding, the root.
func (s *Shelf) prune(dir string) {
	for dir != s.root && strings.HasPrefix(dir, s.root+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// ctxReader stops a copy once its context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
