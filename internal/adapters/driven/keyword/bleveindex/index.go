// Package bleveindex implements the catalog metadata keyword index on an
// in-memory Bleve index. The index is a projection of the catalog and is
// repopulated from it at startup.
package bleveindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.KeywordIndex = (*Index)(nil)

// DefaultLimit is used when Search is called with a non-positive limit.
const DefaultLimit = 10

// fieldBoosts weights matches per field. Title hits count most.
var fieldBoosts = map[string]float64{
	"title":       3,
	"authors":     2,
	"series":      1.5,
	"publisher":   1,
	"description": 1,
	"notes":       1,
}

// document is the shape indexed for each book.
type document struct {
	Title          string `json:"title"`
	Authors        string `json:"authors"`
	Series         string `json:"series"`
	Publisher      string `json:"publisher"`
	Description    string `json:"description"`
	Notes          string `json:"notes"`
	ISBN           string `json:"isbn"`
	Classification string `json:"classification"`
}

func toDocument(b *domain.BookEntry) document {
	return document{
		Title:          b.Title,
		Authors:        strings.Join(b.Authors, ", "),
		Series:         b.Series,
		Publisher:      b.Publisher,
		Description:    b.Description,
		Notes:          b.Notes,
		ISBN:           domain.NormaliseISBN(b.ISBN),
		Classification: b.ClassificationCode,
	}
}

// Index is a Bleve-backed driven.KeywordIndex.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// New creates an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false

	book := bleve.NewDocumentMapping()
	for field := range fieldBoosts {
		book.AddFieldMappingsAt(field, text)
	}
	book.AddFieldMappingsAt("isbn", exact)
	book.AddFieldMappingsAt("classification", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = book
	m.DefaultAnalyzer = standard.Name
	return m
}

// Index adds or replaces a book's metadata.
func (i *Index) Index(ctx context.Context, book *domain.BookEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if book == nil || book.ID == "" {
		return fmt.Errorf("%w: book id is required", domain.ErrInvalidInput)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return fmt.Errorf("keyword index is closed")
	}
	if err := i.index.Index(book.ID, toDocument(book)); err != nil {
		return fmt.Errorf("index book %s: %w", book.ID, err)
	}
	return nil
}

// Delete removes a book from the index. Missing books are ignored.
func (i *Index) Delete(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return fmt.Errorf("keyword index is closed")
	}
	if err := i.index.Delete(bookID); err != nil {
		return fmt.Errorf("delete book %s: %w", bookID, err)
	}
	return nil
}

// Search returns book IDs matching the query, best first.
// Each query word is matched against the text fields; an exact ISBN or
// classification code also matches.
func (i *Index) Search(ctx context.Context, q string, limit int) ([]driven.KeywordHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, 0, false)
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]driven.KeywordHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, driven.KeywordHit{BookID: h.ID, Score: h.Score})
	}
	return hits, nil
}

func buildQuery(q string) query.Query {
	queries := make([]query.Query, 0, len(fieldBoosts)+2)
	for field, boost := range fieldBoosts {
		m := bleve.NewMatchQuery(q)
		m.SetField(field)
		m.SetBoost(boost)
		queries = append(queries, m)
	}

	isbn := bleve.NewTermQuery(domain.NormaliseISBN(q))
	isbn.SetField("isbn")
	isbn.SetBoost(5)

	code := bleve.NewTermQuery(q)
	code.SetField("classification")
	code.SetBoost(2)

	queries = append(queries, isbn, code)
	return bleve.NewDisjunctionQuery(queries...)
}

// Count returns the number of indexed books.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, nil
	}
	return i.index.DocCount()
}

// Close releases the index. It is safe to call more than once.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.index.Close()
}
