package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/indexstore"
)

const testDim = 4

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Known texts map to fixed vectors; anything else gets (len(text), 0, 0, 0).
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	embedErr error
	short    bool // return one vector fewer than requested
	// vectorLen overrides the length of unmapped vectors when set.
	vectorLen int
	calls     int
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.vectorLen > 0 {
		return make([]float32, m.vectorLen)
	}
	return []float32{float32(len(text)), 0, 0, 0}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, m.vectorFor(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int   { return testDim }
func (m *mockEmbeddingService) ModelName() string { return "mock" }
func (m *mockEmbeddingService) Close() error      { return nil }

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockExtractors implements driven.ExtractorRegistry over an in-memory
// path to text table.
type mockExtractors struct {
	texts map[string]string
	err   error
}

func (m *mockExtractors) Register(_ driven.TextExtractor) {}

func (m *mockExtractors) Extract(_ context.Context, path, declaredType string) (string, error) {
	if !m.Supports(declaredType) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, declaredType)
	}
	if m.err != nil {
		return "", m.err
	}
	text, ok := m.texts[path]
	if !ok {
		return "", fmt.Errorf("%w: %s missing", domain.ErrExtraction, path)
	}
	return text, nil
}

func (m *mockExtractors) Supports(declaredType string) bool {
	switch declaredType {
	case "txt", "md":
		return true
	default:
		return false
	}
}

func (m *mockExtractors) SupportedTypes() []string {
	return []string{"md", "txt"}
}

// mockMetadata implements driven.MetadataReader with a fixed mtime per path.
type mockMetadata struct {
	mu       sync.Mutex
	modTimes map[string]time.Time
	err      error
}

func (m *mockMetadata) Read(path string) (domain.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.FileInfo{}, m.err
	}
	mod, ok := m.modTimes[path]
	if !ok {
		mod = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return domain.FileInfo{
		Path:           path,
		SizeBytes:      1234,
		CreatedAt:      mod.Add(-time.Hour),
		ModifiedAt:     mod,
		LastAccessedAt: mod,
	}, nil
}

func (m *mockMetadata) touch(path string, mod time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modTimes == nil {
		m.modTimes = make(map[string]time.Time)
	}
	m.modTimes[path] = mod
}

// --- Helpers ---

func setupTestStore(t *testing.T) *indexstore.Store {
	t.Helper()
	idx, err := flat.New(testDim)
	require.NoError(t, err)
	store, err := indexstore.New(idx, t.TempDir())
	require.NoError(t, err)
	return store
}

// record builds an embedded chunk for docID at position i.
func record(docID string, i int, text string, vec []float32) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Record: domain.IndexedRecord{
			Chunk: domain.Chunk{Text: text, SourceDocID: docID, ChunkIndex: i},
			Metadata: domain.DocumentMetadata{
				Title:      docID + ".txt",
				FileType:   "txt",
				SourcePath: "/docs/" + docID + ".txt",
			},
		},
		Vector: vec,
	}
}
