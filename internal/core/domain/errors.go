package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity with the same identity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a declared document type no extractor handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrExtraction indicates a document's content could not be turned into text.
	ErrExtraction = errors.New("extraction failed")

	// ErrChunkingDegenerate indicates a chunk size/overlap pair that cannot make progress.
	// It is reported when the chunker is configured, never while splitting.
	ErrChunkingDegenerate = errors.New("degenerate chunking configuration")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexCorrupt indicates persisted index artifacts that are unreadable or disagree.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrQueueClosed indicates the ingestion queue no longer accepts jobs.
	ErrQueueClosed = errors.New("ingest queue closed")

	// ErrRateLimited indicates the embedding API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
