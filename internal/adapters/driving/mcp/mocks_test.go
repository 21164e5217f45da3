package mcp

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits []domain.SearchHit
	opts domain.SearchOptions
	err  error
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	m.opts = opts
	return m.hits, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	summaries []domain.DocumentSummary
	records   []domain.IndexedRecord
	digest    *domain.DocumentDigest
	err       error
	limit     int
}

func (m *mockDocumentService) List(_ context.Context, limit int) ([]domain.DocumentSummary, error) {
	m.limit = limit
	return m.summaries, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) ([]domain.IndexedRecord, error) {
	return m.records, m.err
}

func (m *mockDocumentService) Summarize(_ context.Context, _ string) (*domain.DocumentDigest, error) {
	return m.digest, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	job       *domain.IngestJob
	err       error
	submitted []string
	ingested  []string
}

func (m *mockIngestService) Start(_ context.Context) error { return nil }

func (m *mockIngestService) Stop() {}

func (m *mockIngestService) Submit(_ context.Context, path string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.submitted = append(m.submitted, path)
	return "job-1", nil
}

func (m *mockIngestService) Ingest(_ context.Context, path string) (*domain.IngestJob, error) {
	m.ingested = append(m.ingested, path)
	return m.job, m.err
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*domain.IngestJob, error) {
	return m.job, m.err
}

func (m *mockIngestService) Jobs(_ context.Context, _ int) ([]domain.IngestJob, error) {
	return nil, m.err
}

func (m *mockIngestService) Results() <-chan domain.IngestJob {
	return nil
}
