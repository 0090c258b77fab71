package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/logger"
)

// CanonicalPath returns the library-relative path for a book with a
// normalised classification code and a title, without file extension:
// "500-599 Science/500.1/physics-basics".
func CanonicalPath(code, title string) string {
	return path.Join(domain.ClassificationDir(code), domain.Slugify(title))
}

// PathManager assigns canonical paths and moves stored files when a
// book's classification or title changes.
type PathManager struct {
	catalog driven.CatalogStore
	shelf   driven.Shelf
	locks   *BookLocks
	now     func() time.Time

	mu       sync.Mutex
	reserved map[string]string // canonical path -> book id
}

// NewPathManager creates a path manager.
func NewPathManager(catalog driven.CatalogStore, shelf driven.Shelf, locks *BookLocks) *PathManager {
	return &PathManager{
		catalog:  catalog,
		shelf:    shelf,
		locks:    locks,
		now:      time.Now,
		reserved: make(map[string]string),
	}
}

// Assign picks a free canonical path for bookID and reserves it until
// release is called. When the computed path belongs to another book, or
// a stray file occupies it on the shelf, "-2", "-3", ... is appended to
// the slug.
func (m *PathManager) Assign(ctx context.Context, bookID, code, title, ext string) (string, func(), error) {
	base := CanonicalPath(code, title)

	m.mu.Lock()
	defer m.mu.Unlock()

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		candidate := base
		if n > 1 {
			candidate = base + "-" + strconv.Itoa(n)
		}

		if owner, ok := m.reserved[candidate]; ok && owner != bookID {
			continue
		}

		existing, err := m.catalog.GetBookByPath(ctx, candidate)
		switch {
		case err == nil && existing.ID != bookID:
			continue
		case err == nil:
			// The book already lives here.
		case errors.Is(err, domain.ErrNotFound):
			if m.shelf.Exists(candidate + ext) {
				logger.Warn("untracked file at %s, skipping path", candidate+ext)
				continue
			}
		default:
			return "", nil, fmt.Errorf("check path %s: %w", candidate, err)
		}

		m.reserved[candidate] = bookID
		return candidate, m.releaser(candidate, bookID), nil
	}
}

func (m *PathManager) releaser(p, bookID string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.reserved[p] == bookID {
				delete(m.reserved, p)
			}
		})
	}
}

// Relocate reclassifies a book, moving its stored file to the canonical
// path for newCode. It takes the book's lock.
func (m *PathManager) Relocate(ctx context.Context, bookID, newCode string) (*domain.BookEntry, error) {
	if err := domain.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	code, err := domain.NormaliseClassification(newCode)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(bookID)
	defer unlock()

	current, err := m.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	next := *current
	next.ClassificationCode = code
	if err := m.move(ctx, current, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// move commits next, whose code or title may differ from current,
// relocating the stored file first. The caller holds the book's lock.
// If the catalog update fails the file is moved back.
func (m *PathManager) move(ctx context.Context, current, next *domain.BookEntry) error {
	target, release, err := m.Assign(ctx, current.ID, next.ClassificationCode, next.Title, current.Extension())
	if err != nil {
		return err
	}
	defer release()

	next.CanonicalPath = target
	next.UpdatedAt = m.now().UTC()

	from, to := current.FilePath(), next.FilePath()
	moved := false
	if from != to && m.shelf.Exists(from) {
		if err := m.shelf.Move(ctx, from, to); err != nil {
			return fmt.Errorf("move %s: %w", from, err)
		}
		moved = true
	}

	if err := m.catalog.UpdateBook(ctx, next); err != nil {
		if moved {
			if rbErr := m.shelf.Move(context.WithoutCancel(ctx), to, from); rbErr != nil {
				logger.Error("failed to move %s back to %s: %v", to, from, rbErr)
			}
		}
		return fmt.Errorf("update book %s: %w", current.ID, err)
	}

	if moved {
		logger.Info("Moved %s to %s", from, to)
	}
	return nil
}
