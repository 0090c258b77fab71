package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/librarian/internal/adapters/driven/ai"
	"github.com/custodia-labs/librarian/internal/adapters/driven/config/env"
	"github.com/custodia-labs/librarian/internal/adapters/driven/config/file"
	"github.com/custodia-labs/librarian/internal/adapters/driven/keyword/bleveindex"
	"github.com/custodia-labs/librarian/internal/adapters/driven/shelf/filesystem"
	"github.com/custodia-labs/librarian/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/custodia-labs/librarian/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/librarian/internal/adapters/driving/cli"
	"github.com/custodia-labs/librarian/internal/core/services"
	"github.com/custodia-labs/librarian/internal/extractors"
	"github.com/custodia-labs/librarian/internal/logger"
	"github.com/custodia-labs/librarian/internal/pool"
	"github.com/custodia-labs/librarian/internal/postprocessors"
)

// bootstrap opens the stores under the data directory and wires every
// service. Closers run in reverse order on cleanup.
func bootstrap(opts cli.Options) (_ *cli.Services, _ func(), err error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		_ = logger.Sync()
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	dataDir := opts.DataDir
	if dataDir == "" {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return nil, nil, fmt.Errorf("getting home directory: %w", herr)
		}
		dataDir = filepath.Join(home, ".librarian")
	}

	// Configuration: config.toml, overridden by LIBRARIAN_* and --library.
	store, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}
	overlay := env.New(store)
	if opts.Flags != nil {
		if err := overlay.BindFlag("ingest.library_root", opts.Flags.Lookup("library")); err != nil {
			return nil, nil, err
		}
	}
	settingsSvc := services.NewSettingsService(overlay, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening prompts: %w", err)
	}
	aiServices := ai.Init(settings, prompts)
	closers = append(closers, aiServices.Close)

	// Stores.
	catalog, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalogue: %w", err)
	}
	closers = append(closers, func() { _ = catalog.Close() })

	vectors := vectormemory.New()
	closers = append(closers, func() { _ = vectors.Close() })

	libraryRoot := settings.Ingest.LibraryRoot
	if libraryRoot == "" {
		libraryRoot = filepath.Join(dataDir, "library")
	}
	shelf, err := filesystem.New(libraryRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("opening library: %w", err)
	}

	keywords, err := bleveindex.New()
	if err != nil {
		return nil, nil, fmt.Errorf("opening metadata index: %w", err)
	}
	closers = append(closers, func() { _ = keywords.Close() })

	// Services.
	ctx := context.Background()
	catalogSvc := services.NewCatalogService(catalog, vectors, shelf, keywords)
	indexSvc := services.NewIndexService(catalog, vectors)
	if err := indexSvc.Rebuild(ctx); err != nil {
		return nil, nil, fmt.Errorf("rebuilding index: %w", err)
	}
	if err := catalogSvc.Reindex(ctx); err != nil {
		return nil, nil, fmt.Errorf("indexing metadata: %w", err)
	}

	workers, err := pool.New("embed", settings.Ingest.Workers)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, workers.Release)

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, settingsSvc.GetPipelineConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("building pipeline: %w", err)
	}

	registry := extractors.NewDefaultRegistry()
	ingestSvc := services.NewIngestService(catalogSvc, catalog, registry, pipeline, aiServices.EmbeddingService, workers)
	querySvc := services.NewQueryService(catalog, vectors, aiServices.EmbeddingService, indexSvc, settings.Retrieval)
	builder := services.NewContextBuilder(catalog, settings.Retrieval.OverflowTolerance)
	questionSvc := services.NewQuestionService(querySvc, builder, aiServices.LLMService, prompts, *settings)
	examSvc := services.NewExamService(catalog, builder, aiServices.LLMService, prompts, *settings, nil)

	logger.Debug("Library root: %s", shelf.Root())

	return &cli.Services{
		Catalog:        catalogSvc,
		Ingest:         ingestSvc,
		Index:          indexSvc,
		Query:          querySvc,
		Question:       questionSvc,
		Exam:           examSvc,
		Settings:       settingsSvc,
		SupportsFormat: registry.Supports,
	}, cleanup, nil
}
