package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elysia-ai/corrige/pkg/essay"
	"github.com/elysia-ai/corrige/pkg/queue"
)

// Store journals queue transitions and serves job lookups. It
// implements queue.Journal.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordTransition upserts the job row to match the given state. The
// dispatcher calls this before committing any transition in memory, so
// a row here is always at least as new as the queue's view.
func (s *Store) RecordTransition(ctx context.Context, job *queue.Job) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if job == nil || job.Essay == nil {
		return fmt.Errorf("job and essay are required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs
		 (job_id, fingerprint, essay_id, essay_text, language, submitted_at,
		  status, priority, attempts, worker_id, last_error, last_error_reason,
		  created_at, lease_expiry, next_attempt_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		   status = excluded.status,
		   attempts = excluded.attempts,
		   worker_id = excluded.worker_id,
		   last_error = excluded.last_error,
		   last_error_reason = excluded.last_error_reason,
		   lease_expiry = excluded.lease_expiry,
		   next_attempt_at = excluded.next_attempt_at,
		   completed_at = excluded.completed_at`,
		job.ID, job.Fingerprint, job.Essay.ID, job.Essay.Text, job.Essay.Language,
		formatTime(job.Essay.SubmittedAt), string(job.Status), job.Priority, job.Attempts,
		nullString(job.WorkerID), nullString(job.LastError), nullString(job.LastErrorReason),
		formatTime(job.CreatedAt), nullTime(job.LeaseExpiry), nullTime(job.NextAttemptAt),
		nullTime(job.CompletedAt))
	if err != nil {
		return fmt.Errorf("record transition for %s: %w", job.ID, err)
	}
	return nil
}

// Get returns one job by ID, or queue.ErrJobNotFound wrapped when absent.
func (s *Store) Get(ctx context.Context, jobID string) (*queue.Job, error) {
	rows, err := s.queryJobs(ctx, `WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, queue.ErrJobNotFound)
	}
	return rows[0], nil
}

// LoadAll returns every non-terminal job, oldest first. The dispatcher
// replays these on startup, demoting stale leases back to pending.
func (s *Store) LoadAll(ctx context.Context) ([]*queue.Job, error) {
	return s.queryJobs(ctx,
		`WHERE status IN (?, ?, ?) ORDER BY created_at, job_id`,
		string(queue.StatusPending), string(queue.StatusLeased), string(queue.StatusRunning))
}

// ListDeadLettered returns dead-lettered jobs, oldest first.
func (s *Store) ListDeadLettered(ctx context.Context) ([]*queue.Job, error) {
	return s.queryJobs(ctx,
		`WHERE status = ? ORDER BY created_at, job_id`, string(queue.StatusDeadLettered))
}

func (s *Store) queryJobs(ctx context.Context, where string, args ...any) ([]*queue.Job, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, fingerprint, essay_id, essay_text, language, submitted_at,
		        status, priority, attempts, worker_id, last_error, last_error_reason,
		        created_at, lease_expiry, next_attempt_at, completed_at
		 FROM jobs `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*queue.Job
	for rows.Next() {
		var (
			job         queue.Job
			es          essay.Essay
			status      string
			submittedAt string
			createdAt   string
			workerID    sql.NullString
			lastError   sql.NullString
			lastReason  sql.NullString
			leaseExpiry sql.NullString
			nextAttempt sql.NullString
			completedAt sql.NullString
		)
		if err := rows.Scan(&job.ID, &job.Fingerprint, &es.ID, &es.Text, &es.Language,
			&submittedAt, &status, &job.Priority, &job.Attempts, &workerID,
			&lastError, &lastReason, &createdAt, &leaseExpiry, &nextAttempt,
			&completedAt); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}

		job.Status = queue.Status(status)
		job.WorkerID = workerID.String
		job.LastError = lastError.String
		job.LastErrorReason = lastReason.String

		if es.SubmittedAt, err = parseTime(submittedAt); err != nil {
			return nil, err
		}
		if job.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if job.LeaseExpiry, err = parseNullTime(leaseExpiry); err != nil {
			return nil, err
		}
		if job.NextAttemptAt, err = parseNullTime(nextAttempt); err != nil {
			return nil, err
		}
		if job.CompletedAt, err = parseNullTime(completedAt); err != nil {
			return nil, err
		}

		job.Essay = &es
		out = append(out, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
