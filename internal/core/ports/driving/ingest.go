package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// IngestService turns files into indexed chunks.
type IngestService interface {
	// Start launches the worker pool. It must be called before Submit.
	Start(ctx context.Context) error

	// Stop drains the queue and waits for in-flight jobs to finish.
	Stop()

	// Submit enqueues a file and returns the job ID immediately.
	// Returns domain.ErrQueueClosed after Stop.
	Submit(ctx context.Context, path string) (string, error)

	// Ingest runs the pipeline for a file on the calling goroutine.
	Ingest(ctx context.Context, path string) (*domain.IngestJob, error)

	// Status returns a job by ID.
	Status(ctx context.Context, jobID string) (*domain.IngestJob, error)

	// Jobs returns recent jobs, newest first.
	Jobs(ctx context.Context, limit int) ([]domain.IngestJob, error)

	// Results delivers every job that reaches a terminal status.
	// Sends never block; results are dropped when nobody is receiving.
	Results() <-chan domain.IngestJob
}
