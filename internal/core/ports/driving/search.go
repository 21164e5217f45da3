package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search embeds the query and returns the closest indexed chunks,
	// best match first. An empty query returns no hits.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)
}
