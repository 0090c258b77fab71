package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
	"github.com/custodia-labs/librarian/internal/validate"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService manages catalog entries and keeps the shelf, the
// semantic index and the metadata index in step with the catalog.
type CatalogService struct {
	catalog  driven.CatalogStore
	index    driven.VectorIndex
	keywords driven.KeywordIndex
	shelf    driven.Shelf
	locks    *BookLocks
	paths    *PathManager

	now          func() time.Time
	removeSource func(string) error
}

// NewCatalogService creates a catalog service.
// The keywords parameter is optional (can be nil); Find is then unavailable.
func NewCatalogService(
	catalog driven.CatalogStore,
	index driven.VectorIndex,
	shelf driven.Shelf,
	keywords driven.KeywordIndex,
) *CatalogService {
	locks := NewBookLocks()
	return &CatalogService{
		catalog:      catalog,
		index:        index,
		keywords:     keywords,
		shelf:        shelf,
		locks:        locks,
		paths:        NewPathManager(catalog, shelf, locks),
		now:          time.Now,
		removeSource: os.Remove,
	}
}

// Paths returns the service's path manager.
func (s *CatalogService) Paths() *PathManager {
	return s.paths
}

// Add records a new book, places its file on the shelf and indexes its
// chunks. Any failure before the index is populated leaves no state.
func (s *CatalogService) Add(ctx context.Context, nb domain.NewBook) (string, error) {
	entry := nb.Entry

	code, err := domain.NormaliseClassification(entry.ClassificationCode)
	if err != nil {
		return "", err
	}
	entry.ClassificationCode = code
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.Title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if len(entry.Authors) == 0 {
		return "", fmt.Errorf("%w: at least one author is required", domain.ErrInvalidInput)
	}

	if entry.ContentHash != "" {
		existing, err := s.catalog.GetBookByHash(ctx, entry.ContentHash)
		if err == nil {
			return "", fmt.Errorf("%w: same content as %s (%q)", domain.ErrDuplicateBook, existing.ID, existing.Title)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("check content hash: %w", err)
		}
	}

	entry.ID = domain.NewBookID()
	unlock := s.locks.Lock(entry.ID)
	defer unlock()

	canonical, release, err := s.paths.Assign(ctx, entry.ID, code, entry.Title, entry.Extension())
	if err != nil {
		return "", err
	}
	defer release()

	now := s.now().UTC()
	entry.CanonicalPath = canonical
	entry.IngestedAt = now
	entry.UpdatedAt = now
	if entry.Status == "" {
		entry.Status = domain.BookStatusActive
	}

	if nb.SourcePath != "" {
		if err := s.shelf.Place(ctx, nb.SourcePath, entry.FilePath()); err != nil {
			return "", fmt.Errorf("place %s: %w", nb.SourcePath, err)
		}
	}
	rollbackFile := func() {
		if nb.SourcePath == "" {
			return
		}
		if err := s.shelf.Remove(context.WithoutCancel(ctx), entry.FilePath()); err != nil {
			logger.Error("failed to remove %s after aborted add: %v", entry.FilePath(), err)
		}
	}

	chunks := make([]domain.Chunk, len(nb.Chunks))
	copy(chunks, nb.Chunks)
	for i := range chunks {
		chunks[i].BookID = entry.ID
	}

	if err := s.catalog.CreateBook(ctx, &entry, chunks); err != nil {
		rollbackFile()
		return "", fmt.Errorf("record book: %w", err)
	}

	if err := s.index.Upsert(ctx, chunks...); err != nil {
		if delErr := s.catalog.DeleteBook(context.WithoutCancel(ctx), entry.ID); delErr != nil {
			logger.Error("failed to delete %s after index failure: %v", entry.ID, delErr)
		}
		rollbackFile()
		return "", fmt.Errorf("index book: %w", err)
	}

	s.indexKeywords(ctx, &entry)

	if nb.Move && nb.SourcePath != "" {
		if err := s.removeSource(nb.SourcePath); err != nil {
			logger.Warn("book %s added but %s was not removed: %v", entry.ID, nb.SourcePath, err)
		}
	}

	logger.Info("Added %q as %s at %s", entry.Title, entry.ID, entry.FilePath())
	return entry.ID, nil
}

func (s *CatalogService) indexKeywords(ctx context.Context, entry *domain.BookEntry) {
	if s.keywords == nil {
		return
	}
	if err := s.keywords.Index(ctx, entry); err != nil {
		logger.Warn("metadata index update for %s failed: %v", entry.ID, err)
	}
}

// Get retrieves a book by ID.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.BookEntry, error) {
	if err := domain.ValidateBookID(id); err != nil {
		return nil, err
	}
	book, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	return book, nil
}

// Edit applies a patch to a book. A classification or title change
// relocates the stored file before the entry is committed.
func (s *CatalogService) Edit(ctx context.Context, id string, patch domain.BookPatch) (*domain.BookEntry, error) {
	if err := domain.ValidateBookID(id); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get book %s: %w", id, err)
	}
	if patch.IsEmpty() {
		return current, nil
	}

	next := *current
	patch.Apply(&next)
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.ISBN != nil {
		next.ISBN = domain.NormaliseISBN(*patch.ISBN)
	}
	if patch.ClassificationCode != nil {
		code, err := domain.NormaliseClassification(*patch.ClassificationCode)
		if err != nil {
			return nil, err
		}
		next.ClassificationCode = code
	}

	if next.ClassificationCode != current.ClassificationCode || domain.Slugify(next.Title) != domain.Slugify(current.Title) {
		if err := s.paths.move(ctx, current, &next); err != nil {
			return nil, err
		}
	} else {
		next.UpdatedAt = s.now().UTC()
		if err := s.catalog.UpdateBook(ctx, &next); err != nil {
			return nil, fmt.Errorf("update book %s: %w", id, err)
		}
	}

	s.indexKeywords(ctx, &next)
	return &next, nil
}

func validatePatch(p domain.BookPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
	}
	if p.Authors != nil {
		if len(p.Authors) == 0 {
			return fmt.Errorf("%w: at least one author is required", domain.ErrInvalidInput)
		}
		for _, a := range p.Authors {
			if strings.TrimSpace(a) == "" {
				return fmt.Errorf("%w: author names must not be empty", domain.ErrInvalidInput)
			}
		}
	}
	if p.ISBN != nil {
		if err := validate.Global().Var(domain.NormaliseISBN(*p.ISBN), "omitempty,isbn"); err != nil {
			return fmt.Errorf("isbn: %w", err)
		}
	}
	if p.URL != nil {
		if err := validate.Global().Var(*p.URL, "omitempty,url"); err != nil {
			return fmt.Errorf("url: %w", err)
		}
	}
	if p.Year != nil && (*p.Year < 0 || *p.Year > 9999) {
		return fmt.Errorf("%w: year must be between 0 and 9999", domain.ErrInvalidInput)
	}
	return nil
}

// Remove deletes a book with its chunks, vectors, metadata entry and
// stored file.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	if err := domain.ValidateBookID(id); err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	book, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return fmt.Errorf("get book %s: %w", id, err)
	}

	if err := s.catalog.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book %s: %w", id, err)
	}

	// The catalog no longer holds the book; the projections below are
	// cleaned up even if ctx ends.
	cleanup := context.WithoutCancel(ctx)
	if err := s.index.RemoveAllForBook(cleanup, id); err != nil {
		logger.Warn("removing vectors of %s failed: %v", id, err)
	}
	if s.keywords != nil {
		if err := s.keywords.Delete(cleanup, id); err != nil {
			logger.Warn("removing %s from metadata index failed: %v", id, err)
		}
	}
	if err := s.shelf.Remove(cleanup, book.FilePath()); err != nil {
		return fmt.Errorf("remove file %s: %w", book.FilePath(), err)
	}

	logger.Info("Removed %q (%s)", book.Title, id)
	return nil
}

// List returns books matching the filter.
func (s *CatalogService) List(ctx context.Context, filter domain.BookFilter) ([]domain.BookEntry, error) {
	return s.catalog.ListBooks(ctx, filter)
}

// ExistsISBN reports whether a book with the ISBN is catalogued.
func (s *CatalogService) ExistsISBN(ctx context.Context, isbn string) (bool, error) {
	if domain.IsNullISBN(isbn) {
		return false, nil
	}
	books, err := s.catalog.FindByISBN(ctx, domain.NormaliseISBN(isbn))
	if err != nil {
		return false, err
	}
	for _, b := range books {
		if b.Status != domain.BookStatusRemoved {
			return true, nil
		}
	}
	return false, nil
}

// Find looks books up by title, author, description and notes.
func (s *CatalogService) Find(ctx context.Context, query string, limit int) ([]domain.BookEntry, error) {
	if s.keywords == nil {
		return nil, fmt.Errorf("%w: metadata index is not configured", domain.ErrNotImplemented)
	}

	hits, err := s.keywords.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	books := make([]domain.BookEntry, 0, len(hits))
	for _, h := range hits {
		book, err := s.catalog.GetBook(ctx, h.BookID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("metadata index returned unknown book %s", h.BookID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if book.Status == domain.BookStatusRemoved {
			continue
		}
		books = append(books, *book)
	}
	return books, nil
}

// Path returns the absolute path of the book's stored file.
func (s *CatalogService) Path(ctx context.Context, id string) (string, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.shelf.Abs(book.FilePath()), nil
}

// Content reassembles the book's text from its chunks. Overlapping spans
// are written once; gaps left by chunks that failed to embed are marked
// with a blank line.
func (s *CatalogService) Content(ctx context.Context, id string) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	chunks, err := s.catalog.GetChunks(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	end := 0 // rune offset just past the text written so far
	for _, c := range chunks {
		runes := []rune(c.Content)
		switch {
		case c.Offset >= end:
			if c.Offset > end && end > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
		case c.Offset+len(runes) > end:
			b.WriteString(string(runes[end-c.Offset:]))
		default:
			continue
		}
		end = c.Offset + len(runes)
	}
	return b.String(), nil
}

// Reindex repopulates the metadata index from the catalog.
func (s *CatalogService) Reindex(ctx context.Context) error {
	if s.keywords == nil {
		return nil
	}
	books, err := s.catalog.ListBooks(ctx, domain.BookFilter{})
	if err != nil {
		return err
	}
	for i := range books {
		if err := s.keywords.Index(ctx, &books[i]); err != nil {
			return err
		}
	}
	logger.Debug("Metadata index holds %d books", len(books))
	return nil
}
