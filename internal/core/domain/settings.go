package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available embedding providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingSettings controls how document text is split.
type ChunkingSettings struct {
	// Size is the target chunk length in bytes.
	Size int

	// Overlap is how many bytes each chunk shares with the previous one.
	Overlap int
}

// Validate rejects configurations the chunker cannot make progress with.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 || c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrChunkingDegenerate, c.Size, c.Overlap)
	}
	return nil
}

// IndexSettings controls the vector index store.
type IndexSettings struct {
	// Dimensions is the fixed vector length of the store.
	Dimensions int

	// Dir holds the index and records artifacts.
	Dir string
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// TopK is the default number of results.
	TopK int
}

// IngestSettings controls the background ingestion worker pool.
type IngestSettings struct {
	// Workers is the number of concurrent ingestion pipelines.
	Workers int

	// QueueSize is the capacity of the pending job queue.
	QueueSize int

	// WatchDebounce merges bursts of filesystem events for the same file.
	WatchDebounce time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RateLimit caps embedding requests per second. Zero disables limiting.
	RateLimit float64

	// Burst is the token bucket size used with RateLimit.
	Burst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunking  ChunkingSettings
	Index     IndexSettings
	Search    SearchSettings
	Ingest    IngestSettings
	Embedding EmbeddingSettings
}

// Validate checks cross-field constraints before any component is built.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Index.Dimensions <= 0 {
		return fmt.Errorf("%w: index dimensions must be positive", ErrInvalidInput)
	}
	if s.Search.TopK <= 0 {
		return fmt.Errorf("%w: search top_k must be positive", ErrInvalidInput)
	}
	if s.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: ingest workers must be positive", ErrInvalidInput)
	}
	return nil
}

// DefaultAppSettings returns settings with sensible defaults.
// The index directory is left empty; callers resolve it under the data directory.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 200,
		},
		Index: IndexSettings{
			Dimensions: 384, // all-minilm
		},
		Search: SearchSettings{
			TopK: 5,
		},
		Ingest: IngestSettings{
			Workers:       2,
			QueueSize:     64,
			WatchDebounce: 500 * time.Millisecond,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "all-minilm",
			Burst:    1,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the default pipeline from chunking settings.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
		},
	}
}
