// Package jobstore persists FrontendJob records: the frontend's durable
// record of a transcription dispatch, independent of the in-memory worker
// job tracked by the worker service.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meetscribe/meetscribe/pkg/models"
)

// ErrNotFound names a missing job. Store's methods do not return it: Get
// reports a missing job as a nil result and UpdateStatus ignores one.
var ErrNotFound = errors.New("jobstore: job not found")

// ErrDuplicateJob is returned by Create when job_id already exists.
var ErrDuplicateJob = errors.New("jobstore: job already exists")

// postgresUniqueViolation is PostgreSQL's SQLSTATE for a unique constraint
// violation.
const postgresUniqueViolation = "23505"

// Store persists FrontendJob rows.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new job row in the queued state.
func (s *Store) Create(ctx context.Context, jobID string, meetingID int64) (*models.FrontendJob, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, meeting_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		jobID, meetingID, models.JobQueued, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
			return nil, ErrDuplicateJob
		}
		return nil, fmt.Errorf("jobstore: create: %w", err)
	}
	return &models.FrontendJob{
		JobID:     jobID,
		MeetingID: meetingID,
		Status:    models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateStatus transitions a job's status and optionally records a result
// or error payload. It is a no-op if the job does not exist, matching the
// original service's tolerant behavior toward late or duplicate callbacks.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, result map[string]any, jobErr string) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("jobstore: marshal result: %w", err)
		}
	}

	var errPtr *string
	if jobErr != "" {
		errPtr = &jobErr
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, result = $2, error = $3, updated_at = $4 WHERE job_id = $5`,
		status, resultJSON, errPtr, time.Now().UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: update status: %w", err)
	}
	return nil
}

// Get returns the job, or nil if it doesn't exist.
func (s *Store) Get(ctx context.Context, jobID string) (*models.FrontendJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, meeting_id, status, created_at, updated_at, result, error FROM jobs WHERE job_id = $1`,
		jobID,
	)

	var job models.FrontendJob
	var resultJSON []byte
	if err := row.Scan(&job.JobID, &job.MeetingID, &job.Status, &job.CreatedAt, &job.UpdatedAt, &resultJSON, &job.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("jobstore: get: %w", err)
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("jobstore: unmarshal result: %w", err)
		}
	}

	return &job, nil
}

// CleanupOld deletes terminal jobs older than maxAge and reports how many
// rows were removed.
func (s *Store) CleanupOld(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN ($1, $2) AND updated_at < $3`,
		models.JobCompleted, models.JobFailed, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("jobstore: cleanup: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("jobstore: cleanup: %w", err)
	}
	return int(affected), nil
}
