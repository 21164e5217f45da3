package cli

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeIngestService completes every submitted job immediately.
type fakeIngestService struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	jobs     map[string]*domain.IngestJob
	order    []string
	results  chan domain.IngestJob
	failures map[string]string
}

func newFakeIngestService() *fakeIngestService {
	return &fakeIngestService{
		jobs:     make(map[string]*domain.IngestJob),
		results:  make(chan domain.IngestJob, 16),
		failures: make(map[string]string),
	}
}

func (f *fakeIngestService) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeIngestService) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeIngestService) Submit(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started || f.stopped {
		return "", domain.ErrQueueClosed
	}
	job := f.complete(path)
	select {
	case f.results <- *job:
	default:
	}
	return job.ID, nil
}

func (f *fakeIngestService) Ingest(_ context.Context, path string) (*domain.IngestJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.complete(path)
	if job.Status == domain.JobFailed {
		return job, fmt.Errorf("ingest %s: %s", path, job.Error)
	}
	return job, nil
}

func (f *fakeIngestService) complete(path string) *domain.IngestJob {
	id := fmt.Sprintf("job-%d", len(f.order)+1)
	job := &domain.IngestJob{
		ID:         id,
		Path:       path,
		DocID:      "doc-" + id,
		Status:     domain.JobSucceeded,
		Chunks:     3,
		EnqueuedAt: testTime,
		StartedAt:  testTime,
		EndedAt:    testTime,
	}
	if msg, ok := f.failures[path]; ok {
		job.Status = domain.JobFailed
		job.Chunks = 0
		job.Error = msg
	}
	f.jobs[id] = job
	f.order = append(f.order, id)
	return job
}

func (f *fakeIngestService) Status(_ context.Context, id string) (*domain.IngestJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeIngestService) Jobs(_ context.Context, limit int) ([]domain.IngestJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IngestJob
	for i := len(f.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *f.jobs[f.order[i]])
	}
	return out, nil
}

func (f *fakeIngestService) Results() <-chan domain.IngestJob {
	return f.results
}

func (f *fakeIngestService) submittedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.order))
	for _, id := range f.order {
		paths = append(paths, f.jobs[id].Path)
	}
	return paths
}

type fakeSearchService struct {
	hits  []domain.SearchHit
	err   error
	query string
	opts  domain.SearchOptions
}

func (f *fakeSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	f.query = query
	f.opts = opts
	return f.hits, f.err
}

type fakeDocumentService struct {
	records map[string][]domain.IndexedRecord
	limit   int
}

func (f *fakeDocumentService) List(_ context.Context, limit int) ([]domain.DocumentSummary, error) {
	f.limit = limit
	var out []domain.DocumentSummary
	for _, id := range []string{"doc-1"} {
		recs, ok := f.records[id]
		if !ok {
			continue
		}
		out = append(out, domain.DocumentSummary{
			DocID:      id,
			Title:      recs[0].Metadata.Title,
			FileType:   recs[0].Metadata.FileType,
			SourcePath: recs[0].Metadata.SourcePath,
			ModifiedAt: recs[0].Metadata.ModifiedAt,
			Chunks:     len(recs),
		})
	}
	return out, nil
}

func (f *fakeDocumentService) Get(_ context.Context, docID string) ([]domain.IndexedRecord, error) {
	recs, ok := f.records[docID]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	return recs, nil
}

func (f *fakeDocumentService) Summarize(_ context.Context, docID string) (*domain.DocumentDigest, error) {
	recs, ok := f.records[docID]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, docID)
	}
	return &domain.DocumentDigest{DocID: docID, Title: recs[0].Metadata.Title, Summary: recs[0].Chunk.Text}, nil
}

type fakeSettingsService struct {
	settings domain.AppSettings
}

func (f *fakeSettingsService) Get() (*domain.AppSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettingsService) Save(s *domain.AppSettings) error {
	f.settings = *s
	return nil
}

func (f *fakeSettingsService) Validate() error {
	return f.settings.Validate()
}

func (f *fakeSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

type testServices struct {
	embedErr error
	ingest   *fakeIngestService
	search   *fakeSearchService
	document *fakeDocumentService
	settings *fakeSettingsService
}

func testRecord(docID string, i int, text string) domain.IndexedRecord {
	return domain.IndexedRecord{
		Chunk: domain.Chunk{Text: text, SourceDocID: docID, ChunkIndex: i},
		Metadata: domain.DocumentMetadata{
			Title:      "notes.txt",
			FileType:   "txt",
			SourcePath: "/docs/notes.txt",
			SizeBytes:  42,
			CreatedAt:  testTime,
			ModifiedAt: testTime,
		},
	}
}

// setupTestServices installs fakes and resets flag state when done.
func setupTestServices() (*testServices, func()) {
	settings := domain.DefaultAppSettings()
	settings.Index.Dir = "/data/index"

	ts := &testServices{
		ingest: newFakeIngestService(),
		search: &fakeSearchService{hits: []domain.SearchHit{
			{Record: testRecord("doc-1", 0, "The quick brown fox"), Score: 0.95},
		}},
		document: &fakeDocumentService{records: map[string][]domain.IndexedRecord{
			"doc-1": {testRecord("doc-1", 0, "first chunk"), testRecord("doc-1", 1, "second chunk")},
		}},
		settings: &fakeSettingsService{settings: settings},
	}

	SetServices(&Services{
		Ingest:         ts.ingest,
		Search:         ts.search,
		Document:       ts.document,
		Settings:       ts.settings,
		Supports:       func(t string) bool { return t == "txt" || t == "md" },
		ConfigPath:     "/home/test/.docsearch/config.toml",
		CheckEmbedding: func() error { return ts.embedErr },
	})

	return ts, func() {
		SetServices(nil)
		searchJSON, searchTopK = false, 0
		documentJSON, documentLimit = false, 100
		jobsJSON, jobsLimit = false, 20
		ingestWait = false
		watchNoScan = false
	}
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
