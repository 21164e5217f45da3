package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Summary shape.
const (
	summaryChunks    = 3
	summaryMaxLength = 1000
)

// DocumentService projects the index store's record sequence into
// per-document views. It holds no state of its own.
type DocumentService struct {
	store driven.IndexStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(store driven.IndexStore) *DocumentService {
	return &DocumentService{store: store}
}

// List groups the first limit records by document in first-seen order.
func (s *DocumentService) List(ctx context.Context, limit int) ([]domain.DocumentSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := s.store.Records()
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	summaries := []domain.DocumentSummary{}
	positions := make(map[string]int)
	for _, rec := range records {
		docID := rec.Chunk.SourceDocID
		if i, ok := positions[docID]; ok {
			summaries[i].Chunks++
			continue
		}
		positions[docID] = len(summaries)
		summaries = append(summaries, domain.DocumentSummary{
			DocID:      docID,
			Title:      rec.Metadata.Title,
			FileType:   rec.Metadata.FileType,
			SourcePath: rec.Metadata.SourcePath,
			CreatedAt:  rec.Metadata.CreatedAt,
			ModifiedAt: rec.Metadata.ModifiedAt,
			Chunks:     1,
		})
	}
	return summaries, nil
}

// Get returns the chunks of a document ordered by chunk index.
func (s *DocumentService) Get(ctx context.Context, docID string) ([]domain.IndexedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chunks []domain.IndexedRecord
	for _, rec := range s.store.Records() {
		if rec.Chunk.SourceDocID == docID {
			chunks = append(chunks, rec)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	sort.Slice(chunks, func(a, b int) bool {
		return chunks[a].Chunk.ChunkIndex < chunks[b].Chunk.ChunkIndex
	})
	return chunks, nil
}

// Summarize joins the first three chunks of a document, cutting the result
// at 1000 bytes with a trailing "...".
func (s *DocumentService) Summarize(ctx context.Context, docID string) (*domain.DocumentDigest, error) {
	chunks, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, summaryChunks)
	for _, c := range chunks[:min(summaryChunks, len(chunks))] {
		texts = append(texts, c.Chunk.Text)
	}

	summary := strings.Join(texts, "\n\n")
	if len(summary) > summaryMaxLength {
		summary = strings.ToValidUTF8(summary[:summaryMaxLength], "") + "..."
	}

	return &domain.DocumentDigest{
		DocID:   docID,
		Title:   chunks[0].Metadata.Title,
		Summary: summary,
	}, nil
}
