// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docsearch/internal/adapters/driven/embedding/ratelimit"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// pinger is implemented by adapters that can check connectivity cheaply.
type pinger interface {
	Ping(ctx context.Context) error
}

// CreateAndValidateEmbeddingService creates an embedding service and, where
// the provider supports it, validates connectivity.
// Returns nil if the provider is not configured.
func CreateAndValidateEmbeddingService(
	settings *domain.EmbeddingSettings, dimensions int,
) (driven.EmbeddingService, error) {
	svc, err := createBase(settings, dimensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the embedding section of your config",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if p, ok := svc.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			svc.Close()
			return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
		}
	}

	return withRateLimit(svc, settings), nil
}

// CreateEmbeddingService creates the embedding service for settings, producing
// vectors of the given dimension. Returns nil if the provider is not configured.
func CreateEmbeddingService(
	settings *domain.EmbeddingSettings, dimensions int,
) (driven.EmbeddingService, error) {
	svc, err := createBase(settings, dimensions)
	if err != nil || svc == nil {
		return nil, err
	}
	return withRateLimit(svc, settings), nil
}

func createBase(settings *domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: index dimensions must be positive", domain.ErrInvalidInput)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings, dimensions)

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, dimensions)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// withRateLimit wraps svc when a request rate is configured.
func withRateLimit(svc driven.EmbeddingService, settings *domain.EmbeddingSettings) driven.EmbeddingService {
	if settings.RateLimit <= 0 {
		return svc
	}
	return ratelimit.New(svc, ratelimit.Config{
		RequestsPerSecond: settings.RateLimit,
		BurstSize:         settings.Burst,
	})
}

// createOllamaEmbedding creates an Ollama embedding service. Ollama models
// have a fixed output size, so a known model must match the index.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	if native := domain.EmbeddingDimensions()[settings.Model]; native != 0 && native != dimensions {
		return nil, fmt.Errorf("%w: model %s produces %d dimensions, index has %d",
			domain.ErrDimensionMismatch, settings.Model, native, dimensions)
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	}), nil
}

// createOpenAIEmbedding creates an OpenAI embedding service.
// text-embedding-3-* models can shorten their output; ada-002 cannot.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings, dimensions int) (driven.EmbeddingService, error) {
	if settings.Model == "text-embedding-ada-002" && dimensions != 1536 {
		return nil, fmt.Errorf("%w: model %s produces 1536 dimensions, index has %d",
			domain.ErrDimensionMismatch, settings.Model, dimensions)
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
