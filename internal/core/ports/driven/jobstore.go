package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// JobStore persists the ingestion job ledger.
type JobStore interface {
	// Save inserts or replaces a job by ID.
	Save(ctx context.Context, job *domain.IngestJob) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.IngestJob, error)

	// List returns the most recently enqueued jobs first.
	// A limit of zero or less returns every job.
	List(ctx context.Context, limit int) ([]domain.IngestJob, error)

	// PruneHistory keeps only the newest keep terminal jobs.
	PruneHistory(ctx context.Context, keep int) error
}
