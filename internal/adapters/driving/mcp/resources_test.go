package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "docsearch://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "listing URI",
			uri:      "docsearch://documents",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "docsearch://documents/doc-456/chunks",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists documents", func(t *testing.T) {
		doc := &mockDocumentService{summaries: []domain.DocumentSummary{
			{DocID: "d1", Title: "a.txt", FileType: "txt", SourcePath: "/docs/a.txt", Chunks: 3},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: doc})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Equal(t, documentListLimit, doc.limit)

		var got []domain.DocumentSummary
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "d1", got[0].DocID)
		assert.Equal(t, 3, got[0].Chunks)
	})

	t.Run("empty index returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: &mockDocumentService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		doc := &mockDocumentService{err: errors.New("disk on fire")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: doc})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("docsearch://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil document service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("docsearch://documents/doc-123"))

		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: &mockDocumentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("docsearch://invalid/uri"))

		require.Error(t, err)
	})

	t.Run("unknown document returns not found", func(t *testing.T) {
		doc := &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: doc})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("docsearch://documents/nope"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting document content")
	})

	t.Run("joins chunks in order", func(t *testing.T) {
		doc := &mockDocumentService{records: []domain.IndexedRecord{
			{Chunk: domain.Chunk{Text: "first chunk", SourceDocID: "doc-123", ChunkIndex: 0}},
			{Chunk: domain.Chunk{Text: "second chunk", SourceDocID: "doc-123", ChunkIndex: 1}},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: doc})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docsearch://documents/doc-123"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "first chunk\n\nsecond chunk", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("returns error on get failure", func(t *testing.T) {
		doc := &mockDocumentService{err: errors.New("records unreadable")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Document: doc})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("docsearch://documents/doc-123"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document content")
	})
}
