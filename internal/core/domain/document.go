package domain

import (
	"strconv"
	"time"
)

// Document is the extracted text of one source file.
// It is the input to chunking and is never persisted as a whole.
type Document struct {
	// ID is the stable content-addressable identifier (see services.Identify).
	ID string

	// Content is the full extracted text.
	Content string

	// Metadata is attached to every chunk cut from this document.
	Metadata DocumentMetadata
}

// DocumentMetadata holds attributes shared by every chunk of one document.
// It is denormalised onto each IndexedRecord at ingestion time.
type DocumentMetadata struct {
	// Title is the human-readable title (the file's base name).
	Title string `json:"title"`

	// FileType is the lower-cased extension without the dot (e.g. "pdf").
	FileType string `json:"file_type"`

	// SourcePath is the path the document was ingested from.
	SourcePath string `json:"source_path"`

	// SizeBytes is the file size at ingestion time.
	SizeBytes int64 `json:"size_bytes"`

	// CreatedAt is the file's birth time, or change time where birth time is unavailable.
	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt is the file's modification time.
	ModifiedAt time.Time `json:"modified_at"`

	// LastAccessedAt is the file's access time.
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// FileInfo is the filesystem view of a source file.
type FileInfo struct {
	Path           string
	SizeBytes      int64
	CreatedAt      time.Time
	ModifiedAt     time.Time
	LastAccessedAt time.Time
}

// Chunk is a contiguous, trimmed substring of a document's text.
// Chunks are immutable once emitted.
type Chunk struct {
	// Text is the chunk content, never empty after trimming.
	Text string `json:"text"`

	// SourceDocID links to the owning Document.
	SourceDocID string `json:"source_doc_id"`

	// ChunkIndex is the emission position within the document, starting at 0.
	ChunkIndex int `json:"chunk_index"`
}

// Key returns the identity key of the chunk.
func (c Chunk) Key() string {
	return IdentityKey(c.SourceDocID, c.ChunkIndex)
}

// IdentityKey builds the composite key "{docID}_{chunkIndex}".
func IdentityKey(docID string, chunkIndex int) string {
	return docID + "_" + strconv.Itoa(chunkIndex)
}

// IndexedRecord is a chunk with its document metadata, stored without its vector.
// The Nth record of a store corresponds to the Nth vector of its index.
type IndexedRecord struct {
	Chunk    Chunk            `json:"chunk"`
	Metadata DocumentMetadata `json:"metadata"`
}

// EmbeddedChunk pairs a record with the vector produced for its text.
// It only exists between the embedding call and IndexStore.Add.
type EmbeddedChunk struct {
	Record IndexedRecord
	Vector []float32
}
