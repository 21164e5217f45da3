package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// IndexStore keeps a vector index and its chunk records in lockstep.
// The Nth record always describes the Nth vector.
type IndexStore interface {
	// Add appends a batch of embedded chunks. All or nothing.
	Add(ctx context.Context, batch []domain.EmbeddedChunk) error

	// Commit adds the batch and persists the store as one step.
	// When persisting fails the batch is rolled back.
	Commit(ctx context.Context, batch []domain.EmbeddedChunk) error

	// Search returns the topK records closest to the query vector.
	Search(ctx context.Context, query []float32, topK int) ([]domain.SearchHit, error)

	// Save persists the store to its configured artifacts.
	Save(ctx context.Context) error

	// Load replaces the in-memory state with the persisted artifacts.
	Load(ctx context.Context) error

	// Records returns a copy of the record sequence in insertion order.
	Records() []domain.IndexedRecord

	// HasDocument reports whether any chunk of docID is indexed.
	HasDocument(docID string) bool

	// Len returns the number of records.
	Len() int

	// Dimension returns the fixed vector length.
	Dimension() int
}
