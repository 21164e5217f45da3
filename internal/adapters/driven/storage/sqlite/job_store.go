package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// jobStore implements driven.JobStore.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

// jobTimeLayout sorts lexically in chronological order for UTC times.
const jobTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = `id, path, doc_id, status, chunks, error, enqueued_at, started_at, ended_at`

// Save inserts or replaces a job by ID.
func (s *jobStore) Save(ctx context.Context, job *domain.IngestJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			doc_id = excluded.doc_id,
			status = excluded.status,
			chunks = excluded.chunks,
			error = excluded.error,
			enqueued_at = excluded.enqueued_at,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at
	`, job.ID, job.Path, nullString(job.DocID), string(job.Status), job.Chunks,
		nullString(job.Error), formatJobTime(job.EnqueuedAt),
		formatNullableTime(job.StartedAt), formatNullableTime(job.EndedAt))

	if err != nil {
		return fmt.Errorf("saving ingest job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.IngestJob, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM ingest_jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns the most recently enqueued jobs first.
func (s *jobStore) List(ctx context.Context, limit int) ([]domain.IngestJob, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM ingest_jobs
		ORDER BY enqueued_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying ingest jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.IngestJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingest jobs: %w", err)
	}
	return jobs, nil
}

// PruneHistory keeps only the newest keep terminal jobs.
// Queued and running jobs are never pruned.
func (s *jobStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM ingest_jobs
		WHERE status IN (?, ?, ?)
		AND id NOT IN (
			SELECT id FROM ingest_jobs
			WHERE status IN (?, ?, ?)
			ORDER BY enqueued_at DESC, id DESC
			LIMIT ?
		)
	`, terminalArgs(max(keep, 0))...)
	if err != nil {
		return fmt.Errorf("pruning ingest jobs: %w", err)
	}
	return nil
}

func terminalArgs(keep int) []any {
	statuses := []any{
		string(domain.JobSucceeded), string(domain.JobFailed), string(domain.JobSkipped),
	}
	args := append([]any{}, statuses...)
	args = append(args, statuses...)
	return append(args, keep)
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.IngestJob, error) {
	var job domain.IngestJob
	var status, enqueuedAt string
	var docID, errMsg, startedAt, endedAt sql.NullString

	if err := row.Scan(&job.ID, &job.Path, &docID, &status, &job.Chunks,
		&errMsg, &enqueuedAt, &startedAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning ingest job: %w", err)
	}

	job.Status = domain.JobStatus(status)
	job.DocID = docID.String
	job.Error = errMsg.String
	job.EnqueuedAt = parseNullableTime(sql.NullString{String: enqueuedAt, Valid: true})
	job.StartedAt = parseNullableTime(startedAt)
	job.EndedAt = parseNullableTime(endedAt)
	return &job, nil
}

func formatJobTime(t time.Time) string {
	return t.UTC().Format(jobTimeLayout)
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatJobTime(t)
}

// parseNullableTime parses a nullable timestamp.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
