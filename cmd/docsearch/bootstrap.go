package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/ai"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/filestat"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/services"
	"github.com/custodia-labs/docsearch/internal/indexstore"
	"github.com/custodia-labs/docsearch/internal/logger"
	"github.com/custodia-labs/docsearch/internal/normalisers"
	"github.com/custodia-labs/docsearch/internal/postprocessors"
)

// EnvConfigPath overrides the config file location when --config is unset.
const EnvConfigPath = "DOCSEARCH_CONFIG"

// appDirName is the per-user directory holding config, index and job ledger.
const appDirName = ".docsearch"

// bootstrap wires adapters to services. It is called once, after flags are parsed.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return build(opts, filepath.Join(home, appDirName))
}

// build assembles every component under dataDir.
func build(opts cli.Options, dataDir string) (*cli.Services, error) {
	configStore, err := openConfigStore(opts.ConfigPath, dataDir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Debug("config: %s", configStore.Path())

	settingsService := services.NewSettingsService(configStore, dataDir)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	index, err := flat.New(settings.Index.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}
	store, err := indexstore.New(index, settings.Index.Dir)
	if err != nil {
		return nil, err
	}
	done := logger.Timed("load index")
	if err := store.Load(context.Background()); err != nil {
		return nil, err
	}
	done()
	logger.Debug("index: %d records in %s", store.Len(), settings.Index.Dir)

	extractors := normalisers.NewRegistry()
	normalisers.RegisterDefaults(extractors)

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, domain.PipelineConfigFor(settings.Chunking))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding, settings.Index.Dimensions)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		logger.Warn("embedding provider is not configured; ingest and search will fail")
	}

	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		closeEmbedder(embedder)
		return nil, fmt.Errorf("job ledger: %w", err)
	}

	ingestService := services.NewIngestService(services.IngestDeps{
		Extractors: extractors,
		Metadata:   filestat.NewReader(),
		Pipeline:   pipeline,
		Embedding:  embedder,
		Store:      store,
		Jobs:       db.JobStore(),
	}, services.IngestConfig{
		Workers:   settings.Ingest.Workers,
		QueueSize: settings.Ingest.QueueSize,
	})

	return &cli.Services{
		Ingest:     ingestService,
		Search:     services.NewSearchService(store, embedder, settings.Search.TopK),
		Document:   services.NewDocumentService(store),
		Settings:   settingsService,
		Supports:   extractors.Supports,
		ConfigPath: configStore.Path(),
		CheckEmbedding: func() error {
			return checkEmbedding(&settings.Embedding, settings.Index.Dimensions)
		},
		Close: func() error {
			return errors.Join(closeEmbedder(embedder), db.Close())
		},
	}, nil
}

// openConfigStore resolves the config file from the flag, then the
// environment, then the default location under dataDir.
func openConfigStore(flagPath, dataDir string) (*file.ConfigStore, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return file.NewConfigStore(dataDir)
	}
	return file.NewConfigStoreAt(path)
}

// checkEmbedding builds a throwaway client and pings the provider.
func checkEmbedding(settings *domain.EmbeddingSettings, dimensions int) error {
	if !settings.IsConfigured() {
		return fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	svc, err := ai.CreateAndValidateEmbeddingService(settings, dimensions)
	if err != nil {
		return err
	}
	return closeEmbedder(svc)
}

func closeEmbedder(e driven.EmbeddingService) error {
	if e == nil {
		return nil
	}
	return e.Close()
}
