package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		docID string
		index int
		want  string
	}{
		{"abc", 0, "abc_0"},
		{"abc", 12, "abc_12"},
		{"d41d8cd98f00b204e9800998ecf8427e", 3, "d41d8cd98f00b204e9800998ecf8427e_3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentityKey(tt.docID, tt.index))
		})
	}
}

func TestChunk_Key(t *testing.T) {
	c := Chunk{Text: "hello", SourceDocID: "doc-1", ChunkIndex: 4}
	assert.Equal(t, "doc-1_4", c.Key())
}

func TestIndexedRecord_CarriesMetadata(t *testing.T) {
	meta := DocumentMetadata{Title: "report.pdf", FileType: "pdf", SourcePath: "/docs/report.pdf"}
	rec := IndexedRecord{
		Chunk:    Chunk{Text: "body", SourceDocID: "doc-1"},
		Metadata: meta,
	}

	assert.Equal(t, "pdf", rec.Metadata.FileType)
	assert.Equal(t, "doc-1_0", rec.Chunk.Key())
}
