package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/librarian/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// DatabaseFile is the catalog file name inside the data directory.
const DatabaseFile = "catalog.db"

// Ensure Store implements the interface.
var _ driven.CatalogStore = (*Store)(nil)

// Store is the SQLite-backed catalog.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the catalog in dataDir.
// If dataDir is empty, defaults to ~/.librarian.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".librarian")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", classify(err))
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_catalog.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

const bookColumns = `id, title, authors, classification_code, canonical_path, content_hash,
	status, filename, file_type, embedding_version, isbn, publisher, series, edition,
	volume, year, url, description, notes, ingested_at, updated_at`

const chunkColumns = `id, book_id, sequence, start_offset, content, embedding, embedding_version`

// CreateBook stores a new book together with its chunks in one transaction.
func (s *Store) CreateBook(ctx context.Context, book *domain.BookEntry, chunks []domain.Chunk) error {
	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return fmt.Errorf("marshalling authors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", classify(err))
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID, book.Title, string(authors), book.ClassificationCode, book.CanonicalPath,
		book.ContentHash, book.Status.String(), book.Filename, book.FileType,
		book.EmbeddingVersion, book.ISBN, book.Publisher, book.Series, book.Edition,
		book.Volume, book.Year, book.URL, book.Description, book.Notes,
		book.IngestedAt.UTC(), book.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving book: %w", classify(err))
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (`+chunkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", classify(err))
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, book.ID, chunk.Sequence, chunk.Offset,
			chunk.Content, float32SliceToBytes(chunk.Embedding), chunk.EmbeddingVersion); err != nil {
			return fmt.Errorf("saving chunk %d: %w", chunk.Sequence, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", classify(err))
	}
	return nil
}

// UpdateBook replaces the stored fields of an existing book.
func (s *Store) UpdateBook(ctx context.Context, book *domain.BookEntry) error {
	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return fmt.Errorf("marshalling authors: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			title = ?, authors = ?, classification_code = ?, canonical_path = ?,
			content_hash = ?, status = ?, filename = ?, file_type = ?, embedding_version = ?,
			isbn = ?, publisher = ?, series = ?, edition = ?, volume = ?, year = ?,
			url = ?, description = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		book.Title, string(authors), book.ClassificationCode, book.CanonicalPath,
		book.ContentHash, book.Status.String(), book.Filename, book.FileType,
		book.EmbeddingVersion, book.ISBN, book.Publisher, book.Series, book.Edition,
		book.Volume, book.Year, book.URL, book.Description, book.Notes,
		book.UpdatedAt.UTC(), book.ID)
	if err != nil {
		return fmt.Errorf("updating book: %w", classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.BookEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// GetBookByHash retrieves a book by content hash.
func (s *Store) GetBookByHash(ctx context.Context, hash string) (*domain.BookEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE content_hash = ?`, hash)
	return scanBook(row)
}

// GetBookByPath retrieves the book occupying a canonical path.
func (s *Store) GetBookByPath(ctx context.Context, canonicalPath string) (*domain.BookEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE canonical_path = ?`, canonicalPath)
	return scanBook(row)
}

// ListBooks returns books matching the filter, ordered by classification
// code then title.
func (s *Store) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.BookEntry, error) {
	var (
		where []string
		args  []any
	)

	if len(filter.Statuses) == 0 {
		where = append(where, "status <> ?")
		args = append(args, domain.BookStatusRemoved.String())
	} else {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, st.String())
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.ClassificationPrefix != "" {
		where = append(where, "substr(classification_code, 1, ?) = ?")
		args = append(args, len(filter.ClassificationPrefix), filter.ClassificationPrefix)
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY classification_code, title, id`

	return s.queryBooks(ctx, query, args...)
}

// FindByISBN returns books with the given normalised ISBN.
func (s *Store) FindByISBN(ctx context.Context, isbn string) ([]domain.BookEntry, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books
		WHERE isbn = ? AND status <> ? ORDER BY id`, isbn, domain.BookStatusRemoved.String())
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]domain.BookEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", classify(err))
	}
	defer rows.Close()

	var books []domain.BookEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating books: %w", classify(err))
	}
	return books, nil
}

// DeleteBook removes a book and, through the foreign key cascade, its chunks.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetChunks retrieves all chunks for a book ordered by sequence.
func (s *Store) GetChunks(ctx context.Context, bookID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+`
		FROM chunks WHERE book_id = ? ORDER BY sequence`, bookID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", classify(err))
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", classify(err))
	}
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	return scanChunk(row)
}

// EachChunk streams every chunk of every searchable book, ordered by book
// then sequence.
func (s *Store) EachChunk(ctx context.Context, fn func(domain.Chunk) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.book_id, c.sequence, c.start_offset, c.content, c.embedding, c.embedding_version
		FROM chunks c JOIN books b ON b.id = c.book_id
		WHERE b.status IN (?, ?)
		ORDER BY c.book_id, c.sequence`,
		domain.BookStatusActive.String(), domain.BookStatusDegraded.String())
	if err != nil {
		return fmt.Errorf("querying chunks: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return err
		}
		if err := fn(*chunk); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating chunks: %w", classify(err))
	}
	return nil
}

// CountChunks returns the number of chunks of searchable books.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c JOIN books b ON b.id = c.book_id
		WHERE b.status IN (?, ?)`,
		domain.BookStatusActive.String(), domain.BookStatusDegraded.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", classify(err))
	}
	return n, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBook(row scanner) (*domain.BookEntry, error) {
	var (
		book    domain.BookEntry
		authors string
		status  string
	)

	if err := row.Scan(&book.ID, &book.Title, &authors, &book.ClassificationCode,
		&book.CanonicalPath, &book.ContentHash, &status, &book.Filename, &book.FileType,
		&book.EmbeddingVersion, &book.ISBN, &book.Publisher, &book.Series, &book.Edition,
		&book.Volume, &book.Year, &book.URL, &book.Description, &book.Notes,
		&book.IngestedAt, &book.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning book: %w", classify(err))
	}

	if err := json.Unmarshal([]byte(authors), &book.Authors); err != nil {
		return nil, fmt.Errorf("%w: book %s has unreadable authors: %v", domain.ErrCatalogCorrupt, book.ID, err)
	}
	book.Status = domain.BookStatus(status)
	if !book.Status.IsValid() {
		return nil, fmt.Errorf("%w: book %s has unknown status %q", domain.ErrCatalogCorrupt, book.ID, status)
	}

	return &book, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var (
		chunk domain.Chunk
		blob  []byte
	)

	if err := row.Scan(&chunk.ID, &chunk.BookID, &chunk.Sequence, &chunk.Offset,
		&chunk.Content, &blob, &chunk.EmbeddingVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", classify(err))
	}

	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: chunk %s has a truncated embedding", domain.ErrCatalogCorrupt, chunk.ID)
	}
	chunk.Embedding = bytesToFloat32Slice(blob)

	return &chunk, nil
}

// classify maps driver errors onto domain sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "books.content_hash"):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateBook, err)
	case strings.Contains(msg, "books.canonical_path"):
		return fmt.Errorf("%w: %v", domain.ErrPathCollision, err)
	case strings.Contains(msg, "malformed"),
		strings.Contains(msg, "not a database"),
		strings.Contains(msg, "SQLITE_CORRUPT"),
		strings.Contains(msg, "SQLITE_NOTADB"):
		return fmt.Errorf("%w: %v", domain.ErrCatalogCorrupt, err)
	default:
		return err
	}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
