package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Default worker pool shape.
const (
	DefaultIngestWorkers   = 2
	DefaultIngestQueueSize = 64
	DefaultJobHistory      = 500
)

// errAlreadyIndexed ends a job as skipped rather than failed.
var errAlreadyIndexed = errors.New("document already indexed")

// IngestConfig sizes the worker pool.
type IngestConfig struct {
	Workers    int
	QueueSize  int
	JobHistory int
}

// IngestDeps are the collaborators of the ingestion pipeline.
type IngestDeps struct {
	Extractors driven.ExtractorRegistry
	Metadata   driven.MetadataReader
	Pipeline   driven.PostProcessorPipeline
	Embedding  driven.EmbeddingService
	Store      driven.IndexStore
	Jobs       driven.JobStore
}

// IngestService runs extract, chunk, identify, embed and commit for each
// submitted file on a pool of workers, and records every job in the ledger.
type IngestService struct {
	deps IngestDeps
	cfg  IngestConfig

	mu      sync.RWMutex
	running bool
	queue   chan *domain.IngestJob
	wg      sync.WaitGroup
	results chan domain.IngestJob

	claimMu  sync.Mutex
	inflight map[string]struct{}
}

// NewIngestService creates a new ingestion service. Zero config values
// take the package defaults.
func NewIngestService(deps IngestDeps, cfg IngestConfig) *IngestService {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultIngestWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultIngestQueueSize
	}
	if cfg.JobHistory <= 0 {
		cfg.JobHistory = DefaultJobHistory
	}
	return &IngestService{
		deps:     deps,
		cfg:      cfg,
		results:  make(chan domain.IngestJob, cfg.QueueSize),
		inflight: make(map[string]struct{}),
	}
}

// Start launches the workers. Jobs run under ctx; cancelling it fails
// whatever is in flight.
func (s *IngestService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.deps.Jobs.PruneHistory(ctx, s.cfg.JobHistory); err != nil {
		logger.Warn("ingest: prune job history: %v", err)
	}

	s.queue = make(chan *domain.IngestJob, s.cfg.QueueSize)
	s.running = true

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, s.queue)
	}
	logger.Debug("ingest: started %d workers (queue %d)", s.cfg.Workers, s.cfg.QueueSize)
	return nil
}

// Stop closes the queue and waits for queued and in-flight jobs to finish.
func (s *IngestService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	logger.Debug("ingest: stopped")
}

func (s *IngestService) worker(ctx context.Context, queue <-chan *domain.IngestJob) {
	defer s.wg.Done()
	for job := range queue {
		_ = s.process(ctx, job) // recorded in the ledger and on Results
	}
}

// Submit enqueues a file and returns its job ID without waiting for the
// pipeline.
func (s *IngestService) Submit(ctx context.Context, path string) (string, error) {
	job, err := s.newJob(ctx, path)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		s.abandon(job, domain.ErrQueueClosed)
		return "", domain.ErrQueueClosed
	}

	select {
	case s.queue <- job:
		logger.Debug("ingest: queued %s as %s", job.Path, job.ID)
		return job.ID, nil
	case <-ctx.Done():
		s.abandon(job, ctx.Err())
		return "", ctx.Err()
	}
}

// Ingest runs the pipeline for one file on the calling goroutine.
// The returned job is terminal; a failed job is also returned as an error.
func (s *IngestService) Ingest(ctx context.Context, path string) (*domain.IngestJob, error) {
	job, err := s.newJob(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := s.process(ctx, job); err != nil {
		return job, fmt.Errorf("ingest %s: %w", job.Path, err)
	}
	return job, nil
}

// Status returns a job by ID.
func (s *IngestService) Status(ctx context.Context, jobID string) (*domain.IngestJob, error) {
	return s.deps.Jobs.Get(ctx, jobID)
}

// Jobs returns recent jobs, newest first.
func (s *IngestService) Jobs(ctx context.Context, limit int) ([]domain.IngestJob, error) {
	return s.deps.Jobs.List(ctx, limit)
}

// Results delivers terminal jobs. Results nobody receives are dropped once
// the buffer is full.
func (s *IngestService) Results() <-chan domain.IngestJob {
	return s.results
}

func (s *IngestService) newJob(ctx context.Context, path string) (*domain.IngestJob, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	job := &domain.IngestJob{
		ID:         uuid.New().String(),
		Path:       abs,
		Status:     domain.JobQueued,
		EnqueuedAt: time.Now(),
	}
	if err := s.deps.Jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("ingest: record job: %w", err)
	}
	return job, nil
}

// abandon fails a job that never reached a worker.
func (s *IngestService) abandon(job *domain.IngestJob, cause error) {
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.EndedAt = time.Now()
	s.save(context.Background(), job)
}

// process drives one job to a terminal state and returns the failure, if any.
func (s *IngestService) process(ctx context.Context, job *domain.IngestJob) error {
	job.Status = domain.JobRunning
	job.StartedAt = time.Now()
	s.save(ctx, job)

	logger.Section("Ingest " + filepath.Base(job.Path))
	err := s.run(ctx, job)

	job.EndedAt = time.Now()
	switch {
	case err == nil:
		job.Status = domain.JobSucceeded
		logger.Info("ingest: %s indexed as %s (%d chunks)", job.Path, job.DocID, job.Chunks)
	case errors.Is(err, errAlreadyIndexed):
		job.Status = domain.JobSkipped
		err = nil
		logger.Info("ingest: %s already indexed as %s, skipped", job.Path, job.DocID)
	default:
		job.Status = domain.JobFailed
		job.Error = err.Error()
		logger.Error("ingest: %s failed: %v", job.Path, err)
	}

	// The caller's context may be cancelled; the ledger still records the outcome.
	s.save(context.WithoutCancel(ctx), job)
	s.publish(*job)
	return err
}

func (s *IngestService) run(ctx context.Context, job *domain.IngestJob) error {
	declared := DeclaredType(job.Path)
	if !s.deps.Extractors.Supports(declared) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, declared)
	}

	info, err := s.deps.Metadata.Read(job.Path)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	job.DocID = Identify(job.Path, info.ModifiedAt)
	if s.deps.Store.HasDocument(job.DocID) || !s.claim(job.DocID) {
		return errAlreadyIndexed
	}
	defer s.release(job.DocID)

	stop := logger.Timed("extract")
	text, err := s.deps.Extractors.Extract(ctx, job.Path, declared)
	stop()
	if err != nil {
		return err
	}

	doc := &domain.Document{
		ID:       job.DocID,
		Content:  text,
		Metadata: BuildMetadata(job.Path, info),
	}

	chunks, err := s.deps.Pipeline.Process(ctx, doc)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	logger.Debug("ingest: %d chunks from %d bytes", len(chunks), len(text))
	if len(chunks) == 0 {
		logger.Warn("ingest: %s has no text to index", job.Path)
		return nil
	}

	if s.deps.Embedding == nil {
		return domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	stop = logger.Timed("embed")
	vectors, err := s.deps.Embedding.EmbedBatch(ctx, texts)
	stop()
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed: %w: %d vectors for %d chunks",
			domain.ErrInvalidInput, len(vectors), len(chunks))
	}

	batch := make([]domain.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		batch[i] = domain.EmbeddedChunk{
			Record: domain.IndexedRecord{Chunk: c, Metadata: doc.Metadata},
			Vector: vectors[i],
		}
	}

	if err := s.deps.Store.Commit(ctx, batch); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return errAlreadyIndexed
		}
		return fmt.Errorf("commit: %w", err)
	}

	job.Chunks = len(batch)
	return nil
}

// claim reserves docID for this job. Two jobs for the same unchanged file
// never both reach the store.
func (s *IngestService) claim(docID string) bool {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()
	if _, busy := s.inflight[docID]; busy {
		return false
	}
	s.inflight[docID] = struct{}{}
	return true
}

func (s *IngestService) release(docID string) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()
	delete(s.inflight, docID)
}

func (s *IngestService) save(ctx context.Context, job *domain.IngestJob) {
	if err := s.deps.Jobs.Save(ctx, job); err != nil {
		logger.Warn("ingest: record job %s: %v", job.ID, err)
	}
}

func (s *IngestService) publish(job domain.IngestJob) {
	select {
	case s.results <- job:
	default:
		logger.Debug("ingest: result for %s dropped, nobody listening", job.ID)
	}
}
