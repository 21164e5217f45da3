package indexstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

const testDim = 4

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	idx, err := flat.New(testDim)
	require.NoError(t, err)
	s, err := New(idx, t.TempDir())
	require.NoError(t, err)
	return s
}

// embedded builds n chunks of docID whose vectors sit at (base+i, 0, 0, 0).
func embedded(docID string, n int, base float32) []domain.EmbeddedChunk {
	meta := domain.DocumentMetadata{
		Title:      docID + ".txt",
		FileType:   "txt",
		SourcePath: "/docs/" + docID + ".txt",
		SizeBytes:  int64(100 * n),
		ModifiedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	out := make([]domain.EmbeddedChunk, n)
	for i := range out {
		out[i] = domain.EmbeddedChunk{
			Record: domain.IndexedRecord{
				Chunk: domain.Chunk{
					Text:        fmt.Sprintf("%s chunk %d", docID, i),
					SourceDocID: docID,
					ChunkIndex:  i,
				},
				Metadata: meta,
			},
			Vector: []float32{base + float32(i), 0, 0, 0},
		}
	}
	return out
}

func assertInvariants(t *testing.T, s *Store) {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Equal(t, len(s.records), s.index.Len())
	require.Equal(t, len(s.records), len(s.identity))
	for i, rec := range s.records {
		assert.Equal(t, i, s.identity[rec.Chunk.Key()])
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	idx, _ := flat.New(2)
	require.NoError(t, idx.Add([][]float32{{1, 1}}))
	_, err = New(idx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Add(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.Add(ctx, embedded("a", 3, 0)))
	require.NoError(t, s.Add(ctx, nil))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, testDim, s.Dimension())
	assert.True(t, s.HasDocument("a"))
	assert.False(t, s.HasDocument("b"))

	pos, ok := s.Position("a_2")
	assert.True(t, ok)
	assert.Equal(t, 2, pos)
	assertInvariants(t, s)
}

func TestStore_Add_DimensionMismatchAddsNothing(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 1, 0)))

	batch := embedded("b", 3, 10)
	batch[2].Vector = []float32{1, 2}

	err := s.Add(ctx, batch)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasDocument("b"))
	assertInvariants(t, s)
}

func TestStore_Add_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 2, 0)))

	err := s.Add(ctx, embedded("a", 2, 5))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	batch := append(embedded("b", 1, 0), embedded("b", 1, 0)...)
	err = s.Add(ctx, batch)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 2, s.Len())
	assertInvariants(t, s)
}

func TestStore_Search_Empty(t *testing.T) {
	s := setupTestStore(t)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5)

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestStore_Search_InvalidTopK(t *testing.T) {
	s := setupTestStore(t)

	for _, k := range []int{0, -3} {
		_, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, k)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestStore_Search_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 1, 0)))

	_, err := s.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_Search_TwoDocumentsClampTopK(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 3, 0)))
	require.NoError(t, s.Add(ctx, embedded("b", 2, 10)))

	hits, err := s.Search(ctx, []float32{0, 0, 0, 0}, 10)

	require.NoError(t, err)
	require.Len(t, hits, 5)
	for i, h := range hits {
		assert.Greater(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, h.Score, hits[i-1].Score)
		}
	}
	assert.Equal(t, "a_0", hits[0].Record.Chunk.Key())
	assert.Equal(t, 1.0, hits[0].Score)
	assert.Equal(t, "b_1", hits[4].Record.Chunk.Key())
}

func TestStore_Add_NonFiniteAddsNothing(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 1, 0)))

	batch := embedded("b", 2, 5)
	batch[1].Vector = []float32{float32(math.NaN()), 0, 0, 0}

	err := s.Add(ctx, batch)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasDocument("b"))
	assertInvariants(t, s)
}

func TestStore_Search_NonFiniteQuery(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 1, 0)))

	_, err := s.Search(ctx, []float32{0, float32(math.Inf(1)), 0, 0}, 1)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Search_LargeValuesKeepScoresOrdered(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	far := embedded("far", 1, 3e38)
	near := embedded("near", 1, 2)
	require.NoError(t, s.Add(ctx, far))
	require.NoError(t, s.Add(ctx, near))

	hits, err := s.Search(ctx, []float32{0, 0, 0, 0}, 3)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near_0", hits[0].Record.Chunk.Key())
	assert.Equal(t, "far_0", hits[1].Record.Chunk.Key())
	for i, h := range hits {
		assert.Greater(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, h.Score, hits[i-1].Score)
		}
	}
	assert.InDelta(t, 0.2, hits[0].Score, 1e-9)
}

func TestStore_Search_Score(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 2, 0)))

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	// a_1 is at distance 0, a_0 at squared distance 1
	assert.Equal(t, "a_1", hits[0].Record.Chunk.Key())
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-9)
	assert.Equal(t, "txt", hits[0].Record.Metadata.FileType)
}

func TestStore_Records_IsCopy(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.Add(ctx, embedded("a", 2, 0)))

	recs := s.Records()
	recs[0].Chunk.Text = "mutated"

	assert.Equal(t, "a chunk 0", s.Records()[0].Chunk.Text)
}

func TestStore_ConcurrentAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, embedded(fmt.Sprintf("doc%d", w), 5, float32(w))))
		}()
		go func() {
			defer wg.Done()
			_, err := s.Search(ctx, []float32{1, 1, 1, 1}, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, s.Len())
	assertInvariants(t, s)
}

func TestStore_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Add(ctx, embedded("a", 1, 0)), context.Canceled)
	_, err := s.Search(ctx, []float32{0, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Commit_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, _ := flat.New(testDim)
	s, err := New(idx, dir)
	require.NoError(t, err)

	require.NoError(t, s.Commit(ctx, embedded("a", 2, 0)))
	assert.FileExists(t, filepath.Join(dir, IndexFileName))
	assert.FileExists(t, filepath.Join(dir, RecordsFileName))

	idx2, _ := flat.New(testDim)
	reopened, err := New(idx2, dir)
	require.NoError(t, err)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 2, reopened.Len())
	assert.Equal(t, s.Generation(), reopened.Generation())
}

func TestStore_Commit_RollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	idx, _ := flat.New(testDim)
	s, err := New(idx, filepath.Join(blocker, "index"))
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, embedded("a", 1, 0)))

	err = s.Commit(ctx, embedded("b", 3, 5))

	require.Error(t, err)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.HasDocument("b"))
	assertInvariants(t, s)
}

func TestStore_Commit_WithoutPaths(t *testing.T) {
	idx, _ := flat.New(testDim)
	s, err := New(idx, "")
	require.NoError(t, err)

	err = s.Commit(context.Background(), embedded("a", 1, 0))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, s.Len())
}
