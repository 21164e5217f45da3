package indexstore

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Default artifact names inside the index directory.
const (
	IndexFileName   = "index.bin"
	RecordsFileName = "records.json"
)

// Store is the vector index store.
type Store struct {
	mu          sync.RWMutex
	index       driven.VectorIndex
	records     []domain.IndexedRecord
	identity    map[string]int
	generation  string
	indexPath   string
	recordsPath string
}

// New wraps an empty vector index. Artifacts live under dir; an empty dir
// gives a store that can only be saved and loaded with explicit paths.
func New(index driven.VectorIndex, dir string) (*Store, error) {
	if index == nil {
		return nil, fmt.Errorf("indexstore: %w: nil vector index", domain.ErrInvalidInput)
	}
	if index.Len() != 0 {
		return nil, fmt.Errorf("indexstore: %w: vector index is not empty", domain.ErrInvalidInput)
	}

	s := &Store{
		index:    index,
		identity: make(map[string]int),
	}
	if dir != "" {
		s.indexPath = filepath.Join(dir, IndexFileName)
		s.recordsPath = filepath.Join(dir, RecordsFileName)
	}
	return s, nil
}

// Dimension returns the fixed vector length.
func (s *Store) Dimension() int {
	return s.index.Dimension()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Generation returns the ID of the artifacts last saved or loaded.
func (s *Store) Generation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Records returns a copy of the record sequence in insertion order.
func (s *Store) Records() []domain.IndexedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IndexedRecord, len(s.records))
	copy(out, s.records)
	return out
}

// HasDocument reports whether any chunk of docID is indexed.
// Chunk 0 is always present for an indexed document.
func (s *Store) HasDocument(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identity[domain.IdentityKey(docID, 0)]
	return ok
}

// Position returns the record position of an identity key.
func (s *Store) Position(key string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.identity[key]
	return pos, ok
}

// Add appends a batch of embedded chunks. Either every chunk is added or
// none is.
func (s *Store) Add(ctx context.Context, batch []domain.EmbeddedChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(batch)
}

// Commit adds the batch and saves the store under one lock. When saving
// fails the batch is rolled back, so memory never runs ahead of disk.
func (s *Store) Commit(ctx context.Context, batch []domain.EmbeddedChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := len(s.records)
	if err := s.addLocked(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	if err := s.saveLocked(ctx, s.indexPath, s.recordsPath); err != nil {
		if rbErr := s.truncateLocked(prev); rbErr != nil {
			logger.Error("indexstore: rollback after failed save: %v", rbErr)
		}
		return err
	}
	return nil
}

func (s *Store) addLocked(batch []domain.EmbeddedChunk) error {
	if len(batch) == 0 {
		return nil
	}

	dim := s.index.Dimension()
	vectors := make([][]float32, len(batch))
	keys := make(map[string]struct{}, len(batch))
	for i, ec := range batch {
		if len(ec.Vector) != dim {
			return fmt.Errorf("indexstore: chunk %s has %d values, want %d: %w",
				ec.Record.Chunk.Key(), len(ec.Vector), dim, domain.ErrDimensionMismatch)
		}
		if i := firstNonFinite(ec.Vector); i >= 0 {
			return fmt.Errorf("indexstore: chunk %s: %w: value %d is %v",
				ec.Record.Chunk.Key(), domain.ErrInvalidInput, i, ec.Vector[i])
		}
		key := ec.Record.Chunk.Key()
		if _, dup := s.identity[key]; dup {
			return fmt.Errorf("indexstore: chunk %s: %w", key, domain.ErrAlreadyExists)
		}
		if _, dup := keys[key]; dup {
			return fmt.Errorf("indexstore: chunk %s repeated in batch: %w", key, domain.ErrInvalidInput)
		}
		keys[key] = struct{}{}
		vectors[i] = ec.Vector
	}

	prev := s.index.Len()
	if err := s.index.Add(vectors); err != nil {
		if s.index.Len() != prev {
			_ = s.index.Truncate(prev)
		}
		return fmt.Errorf("indexstore: add: %w", err)
	}

	for _, ec := range batch {
		s.identity[ec.Record.Chunk.Key()] = len(s.records)
		s.records = append(s.records, ec.Record)
	}
	return nil
}

// truncateLocked drops every record at position n or later.
func (s *Store) truncateLocked(n int) error {
	for _, rec := range s.records[n:] {
		delete(s.identity, rec.Chunk.Key())
	}
	s.records = s.records[:n:n]
	return s.index.Truncate(n)
}

// Search returns up to topK records ordered by non-increasing score, where
// score is 1/(1+d) for squared Euclidean distance d.
func (s *Store) Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, fmt.Errorf("indexstore: %w: topK must be at least 1, got %d", domain.ErrInvalidInput, topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []domain.SearchHit{}, nil
	}
	if i := firstNonFinite(query); i >= 0 {
		return nil, fmt.Errorf("indexstore: %w: query value %d is %v", domain.ErrInvalidInput, i, query[i])
	}

	k := min(topK, len(s.records))
	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("indexstore: search: %w", err)
	}

	results := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(s.records) {
			continue
		}
		results = append(results, domain.SearchHit{
			Record: s.records[h.Position],
			Score:  1 / (1 + h.Distance),
		})
	}
	return results, nil
}

// firstNonFinite returns the position of the first NaN or infinite value,
// or -1.
func firstNonFinite(v []float32) int {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return i
		}
	}
	return -1
}
