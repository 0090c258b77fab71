package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService ranks books by semantic similarity to a query.
type QueryService struct {
	catalog  driven.CatalogStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	rebuild  func(context.Context) error
	settings domain.RetrievalSettings
}

// NewQueryService creates a query service. The rebuilder repairs the
// index when a hit references a chunk the catalog no longer holds.
func NewQueryService(
	catalog driven.CatalogStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	rebuilder driving.IndexService,
	settings domain.RetrievalSettings,
) *QueryService {
	defaults := domain.DefaultAppSettings().Retrieval
	if settings.TopK <= 0 {
		settings.TopK = defaults.TopK
	}
	if settings.HitsPerBook <= 0 {
		settings.HitsPerBook = defaults.HitsPerBook
	}
	s := &QueryService{
		catalog:  catalog,
		index:    index,
		embedder: embedder,
		settings: settings,
	}
	if rebuilder != nil {
		s.rebuild = rebuilder.Rebuild
	}
	return s
}

// Search returns at most topK books ranked by their best chunk
// similarity. A non-positive topK uses the configured default.
func (s *QueryService) Search(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
	logger.Section("Search")
	query = strings.TrimSpace(query)
	if topK <= 0 {
		topK = s.settings.TopK
	}

	resp := &domain.SearchResponse{}
	if query == "" || s.index.Len() == 0 {
		logger.Debug("Empty query or index, returning no results")
		return resp, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vec, err := withRetry(ctx, "embed query", func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	results, missing, err := s.search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}

	if len(missing) > 0 && s.rebuild != nil {
		logger.Warn("%d hits reference chunks missing from the catalog, rebuilding index", len(missing))
		if err := s.rebuild(ctx); err != nil {
			return nil, fmt.Errorf("rebuild index: %w", err)
		}
		results, missing, err = s.search(ctx, vec, topK)
		if err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		resp.Warnings = append(resp.Warnings,
			fmt.Sprintf("%v: skipped %d hits for chunks the catalog does not hold", domain.ErrIndexInconsistency, len(missing)))
	}

	resp.Results = results
	logger.Debug("Query %q returned %d books", query, len(results))
	return resp, nil
}

// search runs one index lookup and aggregates hits per book. It returns
// the IDs of hit chunks the catalog does not hold.
func (s *QueryService) search(ctx context.Context, vec []float32, topK int) ([]domain.SearchResult, []string, error) {
	hits, err := s.index.Search(ctx, vec, topK*s.settings.HitsPerBook)
	if err != nil {
		return nil, nil, fmt.Errorf("search index: %w", err)
	}

	version := s.embedder.ModelName()
	warnedVersion := false

	var missing []string
	byBook := make(map[string]*domain.SearchResult)
	skipped := make(map[string]bool)

	for _, h := range hits {
		if h.Score <= s.settings.MinScore {
			continue
		}
		if skipped[h.BookID] {
			continue
		}

		if _, err := s.catalog.GetChunk(ctx, h.ChunkID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				missing = append(missing, h.ChunkID)
				continue
			}
			return nil, nil, err
		}

		if h.EmbeddingVersion != version && !warnedVersion {
			logger.Warn("index holds %s vectors but queries are embedded with %s", h.EmbeddingVersion, version)
			warnedVersion = true
		}

		result, ok := byBook[h.BookID]
		if !ok {
			book, err := s.catalog.GetBook(ctx, h.BookID)
			if errors.Is(err, domain.ErrNotFound) {
				missing = append(missing, h.ChunkID)
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			if !book.Status.IsSearchable() {
				skipped[h.BookID] = true
				continue
			}
			result = &domain.SearchResult{BookID: h.BookID, Book: *book, Score: h.Score}
			byBook[h.BookID] = result
		}

		// Hits arrive best first, so the first hit sets the book score
		// and later ones only add supporting chunks.
		result.ChunkIDs = append(result.ChunkIDs, h.ChunkID)
		result.ChunkScores = append(result.ChunkScores, h.Score)
	}

	results := make([]domain.SearchResult, 0, len(byBook))
	for _, r := range byBook {
		results = append(results, *r)
	}
	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, missing, nil
}

// sortResults orders by descending score, then earliest ingestion, then
// book ID.
func sortResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Book.IngestedAt.Equal(b.Book.IngestedAt) {
			return a.Book.IngestedAt.Before(b.Book.IngestedAt)
		}
		return a.BookID < b.BookID
	})
}
