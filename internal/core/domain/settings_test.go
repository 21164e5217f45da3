package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "empty is invalid", provider: AIProvider(""), expected: false},
		{name: "unknown is invalid", provider: AIProvider("cohere"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

func TestChunkingSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: 1000, overlap: 200},
		{name: "no overlap", size: 10, overlap: 0},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ChunkingSettings{Size: tt.size, Overlap: tt.overlap}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrChunkingDegenerate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 1000, s.Chunking.Size)
	assert.Equal(t, 200, s.Chunking.Overlap)
	assert.Equal(t, 384, s.Index.Dimensions)
	assert.Equal(t, 5, s.Search.TopK)
	assert.Equal(t, AIProviderOllama, s.Embedding.Provider)
	require.NoError(t, s.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	t.Run("bad dimensions", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Index.Dimensions = 0
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})

	t.Run("bad top k", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Search.TopK = 0
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})

	t.Run("bad workers", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Ingest.Workers = 0
		assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
	})

	t.Run("degenerate chunking", func(t *testing.T) {
		s := DefaultAppSettings()
		s.Chunking.Overlap = s.Chunking.Size
		assert.ErrorIs(t, s.Validate(), ErrChunkingDegenerate)
	})
}

func TestPipelineConfigFor(t *testing.T) {
	cfg := PipelineConfigFor(ChunkingSettings{Size: 500, Overlap: 50})

	assert.Equal(t, []string{"chunker"}, cfg.Processors)
	chunkerCfg := cfg.GetProcessorConfig("chunker")
	require.NotNil(t, chunkerCfg)
	assert.Equal(t, 500, chunkerCfg["chunk_size"])
	assert.Equal(t, 50, chunkerCfg["overlap"])
	assert.Nil(t, cfg.GetProcessorConfig("missing"))
}
