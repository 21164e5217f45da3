package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyIndexDims       = "index.dimensions"
	keyIndexDir        = "index.dir"
	keySearchTopK      = "search.top_k"
	keyIngestWorkers   = "ingest.workers"
	keyIngestQueueSize = "ingest.queue_size"
	keyIngestDebounce  = "ingest.watch_debounce"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedRateLimit  = "embedding.rate_limit"
	keyEmbedBurst      = "embedding.burst"
)

// EnvOpenAIKey is consulted when no API key is configured for OpenAI.
const EnvOpenAIKey = "OPENAI_API_KEY"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// dataDir is where the index directory defaults to when index.dir is unset.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := s.GetDefaults()

	debounce := defaults.Ingest.WatchDebounce
	if raw := s.configStore.GetString(keyIngestDebounce); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, keyIngestDebounce, err)
		}
		debounce = d
	}

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Index: domain.IndexSettings{
			Dimensions: s.getInt(keyIndexDims, defaults.Index.Dimensions),
			Dir:        expandHome(s.getString(keyIndexDir, defaults.Index.Dir)),
		},
		Search: domain.SearchSettings{
			TopK: s.getInt(keySearchTopK, defaults.Search.TopK),
		},
		Ingest: domain.IngestSettings{
			Workers:       s.getInt(keyIngestWorkers, defaults.Ingest.Workers),
			QueueSize:     s.getInt(keyIngestQueueSize, defaults.Ingest.QueueSize),
			WatchDebounce: debounce,
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, ""),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - adapters pick their own
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			RateLimit: s.configStore.GetFloat(keyEmbedRateLimit),
			Burst:     s.getInt(keyEmbedBurst, defaults.Embedding.Burst),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider.RequiresAPIKey() {
		if key, ok := s.lookupEnv(EnvOpenAIKey); ok {
			settings.Embedding.APIKey = key
		}
	}

	return settings, nil
}

// Save persists application settings.
// An API key that came from the environment is written like any other.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyIndexDims, settings.Index.Dimensions},
		{keyIndexDir, settings.Index.Dir},
		{keySearchTopK, settings.Search.TopK},
		{keyIngestWorkers, settings.Ingest.Workers},
		{keyIngestQueueSize, settings.Ingest.QueueSize},
		{keyIngestDebounce, settings.Ingest.WatchDebounce.String()},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyEmbedBurst, settings.Embedding.Burst},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings with the index directory resolved
// under the data directory.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	defaults := domain.DefaultAppSettings()
	if s.dataDir != "" {
		defaults.Index.Dir = filepath.Join(s.dataDir, "index")
	}
	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt distinguishes an explicit zero from an absent key.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
