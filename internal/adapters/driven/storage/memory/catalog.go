package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
// It enforces the same uniqueness rules as the SQLite store.
type CatalogStore struct {
	mu     sync.RWMutex
	books  map[string]domain.BookEntry
	chunks map[string][]domain.Chunk // by book id, in sequence order
	byHash map[string]string
	byPath map[string]string
}

// NewCatalogStore creates a new in-memory catalog.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		books:  make(map[string]domain.BookEntry),
		chunks: make(map[string][]domain.Chunk),
		byHash: make(map[string]string),
		byPath: make(map[string]string),
	}
}

// CreateBook stores a new book together with its chunks.
func (s *CatalogStore) CreateBook(ctx context.Context, book *domain.BookEntry, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[book.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := s.byHash[book.ContentHash]; ok {
		return domain.ErrDuplicateBook
	}
	if _, ok := s.byPath[book.CanonicalPath]; ok {
		return domain.ErrPathCollision
	}

	s.books[book.ID] = copyBook(*book)
	s.byHash[book.ContentHash] = book.ID
	s.byPath[book.CanonicalPath] = book.ID

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	for i := range stored {
		stored[i].BookID = book.ID
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Sequence < stored[j].Sequence })
	s.chunks[book.ID] = stored
	return nil
}

// UpdateBook replaces the stored fields of an existing book.
func (s *CatalogStore) UpdateBook(ctx context.Context, book *domain.BookEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.books[book.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, ok := s.byPath[book.CanonicalPath]; ok && owner != book.ID {
		return domain.ErrPathCollision
	}
	if owner, ok := s.byHash[book.ContentHash]; ok && owner != book.ID {
		return domain.ErrDuplicateBook
	}

	delete(s.byPath, old.CanonicalPath)
	delete(s.byHash, old.ContentHash)
	s.books[book.ID] = copyBook(*book)
	s.byPath[book.CanonicalPath] = book.ID
	s.byHash[book.ContentHash] = book.ID
	return nil
}

// GetBook retrieves a book by ID.
func (s *CatalogStore) GetBook(_ context.Context, id string) (*domain.BookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

// GetBookByHash retrieves a book by content hash.
func (s *CatalogStore) GetBookByHash(_ context.Context, hash string) (*domain.BookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(s.byHash[hash])
}

// GetBookByPath retrieves the book occupying a canonical path.
func (s *CatalogStore) GetBookByPath(_ context.Context, canonicalPath string) (*domain.BookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(s.byPath[canonicalPath])
}

func (s *CatalogStore) get(id string) (*domain.BookEntry, error) {
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b := copyBook(book)
	return &b, nil
}

// ListBooks returns books matching the filter, ordered by classification
// code, title and id.
func (s *CatalogStore) ListBooks(_ context.Context, filter domain.BookFilter) ([]domain.BookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var books []domain.BookEntry
	for _, b := range s.books {
		if filter.Matches(&b) {
			books = append(books, copyBook(b))
		}
	}
	sort.Slice(books, func(i, j int) bool {
		a, b := books[i], books[j]
		if a.ClassificationCode != b.ClassificationCode {
			return a.ClassificationCode < b.ClassificationCode
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return books, nil
}

// FindByISBN returns non-removed books with the given ISBN.
func (s *CatalogStore) FindByISBN(_ context.Context, isbn string) ([]domain.BookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var books []domain.BookEntry
	for _, b := range s.books {
		if b.ISBN == isbn && b.Status != domain.BookStatusRemoved {
			books = append(books, copyBook(b))
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// DeleteBook removes a book and its chunks.
func (s *CatalogStore) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.books, id)
	delete(s.chunks, id)
	delete(s.byHash, book.ContentHash)
	delete(s.byPath, book.CanonicalPath)
	return nil
}

// GetChunks retrieves all chunks for a book ordered by sequence.
func (s *CatalogStore) GetChunks(_ context.Context, bookID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[bookID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *CatalogStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			if c.ID == id {
				chunk := c
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// EachChunk streams every chunk of every searchable book, ordered by book
// then sequence. The store is not locked while fn runs.
func (s *CatalogStore) EachChunk(ctx context.Context, fn func(domain.Chunk) error) error {
	for _, chunk := range s.searchableChunks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// CountChunks returns the number of chunks of searchable books.
func (s *CatalogStore) CountChunks(_ context.Context) (int, error) {
	return len(s.searchableChunks()), nil
}

func (s *CatalogStore) searchableChunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.books))
	for id, b := range s.books {
		if b.Status.IsSearchable() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []domain.Chunk
	for _, id := range ids {
		out = append(out, s.chunks[id]...)
	}
	return out
}

// Close is a no-op.
func (s *CatalogStore) Close() error {
	return nil
}

func copyBook(b domain.BookEntry) domain.BookEntry {
	b.Authors = append([]string(nil), b.Authors...)
	return b
}
