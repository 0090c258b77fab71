package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService maintains the semantic index as a projection of the
// catalog's chunk vectors.
type IndexService struct {
	catalog driven.CatalogStore
	index   driven.VectorIndex
}

// NewIndexService creates an index service.
func NewIndexService(catalog driven.CatalogStore, index driven.VectorIndex) *IndexService {
	return &IndexService{catalog: catalog, index: index}
}

// Rebuild reloads every searchable chunk from the catalog into a fresh
// index snapshot.
func (s *IndexService) Rebuild(ctx context.Context) error {
	start := time.Now()
	if err := s.index.Rebuild(ctx, s.catalog.EachChunk); err != nil {
		return err
	}
	logger.Info("Rebuilt semantic index: %d vectors in %s", s.index.Len(), time.Since(start).Round(time.Millisecond))
	return nil
}

// Verify compares the index with the catalog.
func (s *IndexService) Verify(ctx context.Context) (*domain.IndexReport, error) {
	byBook := make(map[string][]string)
	known := make(map[string]struct{})
	err := s.catalog.EachChunk(ctx, func(c domain.Chunk) error {
		byBook[c.BookID] = append(byBook[c.BookID], c.ID)
		known[c.ID] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read catalog chunks: %w", err)
	}

	books, err := s.catalog.ListBooks(ctx, domain.BookFilter{
		Statuses: []domain.BookStatus{domain.BookStatusActive, domain.BookStatusDegraded},
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	report := &domain.IndexReport{
		IndexedChunks: s.index.Len(),
		CatalogChunks: len(known),
	}

	for _, b := range books {
		ids := byBook[b.ID]
		if len(ids) == 0 || len(s.index.Missing(ids)) == len(ids) {
			report.UnindexedBooks = append(report.UnindexedBooks, b.ID)
		}
	}

	for _, id := range s.index.ChunkIDs() {
		if _, ok := known[id]; !ok {
			report.StaleChunks = append(report.StaleChunks, id)
		}
	}
	sort.Strings(report.UnindexedBooks)

	if !report.Consistent() {
		logger.Warn("index verification: %d unindexed books, %d stale chunks (%d indexed, %d catalogued)",
			len(report.UnindexedBooks), len(report.StaleChunks), report.IndexedChunks, report.CatalogChunks)
	}
	return report, nil
}
