package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/librarian/internal/core/domain"
	"github.com/custodia-labs/librarian/internal/core/ports/driven"
	"github.com/custodia-labs/librarian/internal/core/ports/driving"
	"github.com/custodia-labs/librarian/internal/logger"
	"github.com/custodia-labs/librarian/internal/pool"
	"github.com/custodia-labs/librarian/internal/validate"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns files into catalogued, searchable books.
type IngestService struct {
	books      *CatalogService
	catalog    driven.CatalogStore
	extractors driven.ExtractorRegistry
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	workers    *pool.Pool
}

// NewIngestService creates an ingestion service. Chunk embedding fans
// out on workers. The embedder is optional; without it Ingest fails with
// domain.ErrEmbeddingUnavailable.
func NewIngestService(
	books *CatalogService,
	catalog driven.CatalogStore,
	extractors driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	workers *pool.Pool,
) *IngestService {
	return &IngestService{
		books:      books,
		catalog:    catalog,
		extractors: extractors,
		pipeline:   pipeline,
		embedder:   embedder,
		workers:    workers,
	}
}

// Ingest extracts, chunks and embeds the file at path and records it.
func (s *IngestService) Ingest(
	ctx context.Context, path string, meta domain.BookMetadata, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	logger.Section("Ingest")
	logger.Debug("File: %s", path)

	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	meta.Title = strings.TrimSpace(meta.Title)
	meta.ISBN = domain.NormaliseISBN(meta.ISBN)
	if err := validate.Struct(meta); err != nil {
		return nil, err
	}
	code, err := domain.NormaliseClassification(meta.ClassificationCode)
	if err != nil {
		return nil, err
	}

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !s.extractors.Supports(fileType) {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedFormat, filepath.Ext(path), strings.Join(s.extractors.SupportedTypes(), ", "))
	}

	hash, err := hashFile(path)
	if err != nil {
		return nil, err
	}
	if existing, err := s.catalog.GetBookByHash(ctx, hash); err == nil {
		return nil, fmt.Errorf("%w: same content as %s (%q)", domain.ErrDuplicateBook, existing.ID, existing.Title)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check content hash: %w", err)
	}

	text, err := s.extractors.Extract(ctx, fileType, path)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, domain.ErrIngestion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: extract %s: %v", domain.ErrIngestion, path, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %s", domain.ErrIngestion, path)
	}

	chunks, err := s.pipeline.Process(ctx, &domain.ExtractedText{Content: text})
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %v", domain.ErrIngestion, path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", domain.ErrIngestion, path)
	}
	logger.Debug("Extracted %d runes into %d chunks", len([]rune(text)), len(chunks))

	embedded, failed, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	entry := domain.BookEntry{
		Title:              meta.Title,
		Authors:            meta.Authors,
		ClassificationCode: code,
		ContentHash:        hash,
		Status:             domain.BookStatusActive,
		Filename:           filepath.Base(path),
		FileType:           fileType,
		EmbeddingVersion:   s.embedder.ModelName(),
		ISBN:               meta.ISBN,
		Publisher:          meta.Publisher,
		Series:             meta.Series,
		Edition:            meta.Edition,
		Volume:             meta.Volume,
		Year:               meta.Year,
		URL:                meta.URL,
		Description:        meta.Description,
		Notes:              meta.Notes,
	}

	report := &domain.IngestReport{Chunks: len(embedded), FailedChunks: failed}
	if failed > 0 {
		entry.Status = domain.BookStatusDegraded
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d of %d chunks failed to embed; the book is searchable but degraded", failed, len(chunks)))
	}

	id, err := s.books.Add(ctx, domain.NewBook{
		Entry:      entry,
		Chunks:     embedded,
		SourcePath: path,
		Move:       opts.Move,
	})
	if err != nil {
		return nil, err
	}

	book, err := s.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Book = *book
	return report, nil
}

// embed computes every chunk's vector on the worker pool. Chunks whose
// embedding still fails after retries are dropped and the survivors are
// renumbered so sequences stay contiguous. It fails with
// domain.ErrIngestion only when nothing embedded.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, int, error) {
	vectors := make([][]float32, len(chunks))
	errs := make([]error, len(chunks))

	err := s.workers.Each(ctx, len(chunks), func(ctx context.Context, i int) {
		vectors[i], errs[i] = withRetry(ctx, "embed chunk", func(ctx context.Context) ([]float32, error) {
			return s.embedder.Embed(ctx, chunks[i].Content)
		})
	})
	if err != nil {
		return nil, 0, err
	}

	version := s.embedder.ModelName()
	kept := make([]domain.Chunk, 0, len(chunks))
	var firstErr error
	for i, c := range chunks {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			logger.Warn("chunk %d (offset %d) not embedded: %v", c.Sequence, c.Offset, errs[i])
			continue
		}
		c.Sequence = len(kept)
		c.Embedding = vectors[i]
		c.EmbeddingVersion = version
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return nil, 0, fmt.Errorf("%w: every chunk failed to embed: %w", domain.ErrIngestion, firstErr)
	}
	return kept, len(chunks) - len(kept), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
