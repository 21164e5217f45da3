package domain

import "time"

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

// Job lifecycle states.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"

	// JobSkipped marks a document whose identity is already indexed.
	JobSkipped JobStatus = "skipped"
)

// IsTerminal returns true once a job will not change state again.
func (s JobStatus) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobSkipped
}

// IngestJob tracks one run of the ingestion pipeline for one file.
type IngestJob struct {
	// ID is the job identifier returned to the submitter.
	ID string `json:"id"`

	// Path is the file being ingested.
	Path string `json:"path"`

	// DocID is the document identity, set once the file has been inspected.
	DocID string `json:"doc_id,omitempty"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	// Chunks is the number of chunks indexed.
	Chunks int `json:"chunks"`

	// Error holds the failure message when Status is JobFailed.
	Error string `json:"error,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	EndedAt    time.Time `json:"ended_at,omitzero"`
}
