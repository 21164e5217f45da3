package domain

import "time"

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero means the configured default.
	TopK int
}

// SearchHit is one ranked result.
type SearchHit struct {
	// Record is the matched chunk and its document metadata.
	Record IndexedRecord `json:"record"`

	// Score is 1/(1+squared distance), in (0, 1]. Higher is closer.
	Score float64 `json:"score"`
}

// DocumentSummary is one row of the listing view: a document and its chunk count.
type DocumentSummary struct {
	DocID      string    `json:"doc_id"`
	Title      string    `json:"title"`
	FileType   string    `json:"file_type"`
	SourcePath string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Chunks     int       `json:"chunks"`
}

// DocumentDigest is a short preview built from the leading chunks of a document.
type DocumentDigest struct {
	DocID   string `json:"doc_id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}
