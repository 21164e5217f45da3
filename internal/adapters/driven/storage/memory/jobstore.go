package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.IngestJob
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.IngestJob),
	}
}

// Save stores or updates a job.
func (s *JobStore) Save(_ context.Context, job *domain.IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.IngestJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// List returns jobs newest first.
func (s *JobStore) List(_ context.Context, limit int) ([]domain.IngestJob, error) {
	s.mu.RLock()
	jobs := make([]domain.IngestJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	sortNewestFirst(jobs)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// PruneHistory keeps only the newest keep terminal jobs.
func (s *JobStore) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var terminal []domain.IngestJob
	for _, j := range s.jobs {
		if j.Status.IsTerminal() {
			terminal = append(terminal, j)
		}
	}
	if len(terminal) <= keep {
		return nil
	}

	sortNewestFirst(terminal)
	for _, j := range terminal[max(keep, 0):] {
		delete(s.jobs, j.ID)
	}
	return nil
}

func sortNewestFirst(jobs []domain.IngestJob) {
	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].EnqueuedAt.Equal(jobs[b].EnqueuedAt) {
			return jobs[a].EnqueuedAt.After(jobs[b].EnqueuedAt)
		}
		return jobs[a].ID > jobs[b].ID
	})
}
