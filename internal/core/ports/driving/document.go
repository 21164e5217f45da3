package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// DocumentService exposes read-only views over indexed documents.
type DocumentService interface {
	// List groups the first limit records by document, in first-seen order.
	// A limit of zero or less considers every record.
	List(ctx context.Context, limit int) ([]domain.DocumentSummary, error)

	// Get returns the chunks of a document ordered by chunk index.
	Get(ctx context.Context, docID string) ([]domain.IndexedRecord, error)

	// Summarize returns a short digest built from the leading chunks.
	Summarize(ctx context.Context, docID string) (*domain.DocumentDigest, error)
}
