package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultTopK is used when neither the caller nor the settings give a limit.
const DefaultTopK = 5

// SearchService embeds queries and ranks indexed chunks by vector distance.
type SearchService struct {
	store            driven.IndexStore
	embeddingService driven.EmbeddingService
	defaultTopK      int
}

// NewSearchService creates a new search service.
// The embeddingService may be nil; searches then fail with
// domain.ErrEmbeddingUnavailable.
func NewSearchService(
	store driven.IndexStore,
	embeddingService driven.EmbeddingService,
	defaultTopK int,
) *SearchService {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &SearchService{
		store:            store,
		embeddingService: embeddingService,
		defaultTopK:      defaultTopK,
	}
}

// Search embeds the query and returns the closest chunks, best first.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	logger.Debug("TopK: %d, indexed chunks: %d", topK, s.store.Len())

	if s.embeddingService == nil {
		logger.Warn("Search unavailable: embedding service is nil")
		return nil, domain.ErrEmbeddingUnavailable
	}

	stop := logger.Timed("query embedding")
	embedding, err := s.embeddingService.Embed(ctx, query)
	stop()
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	hits, err := s.store.Search(ctx, embedding, topK)
	if err != nil {
		logger.Warn("Index search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	logger.Info("Final results: %d", len(hits))
	return hits, nil
}
