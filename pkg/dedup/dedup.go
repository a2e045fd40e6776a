// Package dedup tracks content fingerprints of accepted submissions so
// resubmitted essays map onto the existing job instead of a new one.
package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Registry is a fingerprint table with a retention window. Entries
// older than the window no longer suppress resubmission. It is backed
// by the job database and safe for concurrent use.
type Registry struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

func New(db *sql.DB, retention time.Duration) *Registry {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Registry{db: db, retention: retention, now: time.Now}
}

// Lookup returns the job registered for the fingerprint inside the
// retention window. An expired entry is removed and reported absent.
func (r *Registry) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var jobID, registeredAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT job_id, registered_at FROM fingerprints WHERE fingerprint = ?`,
		fingerprint).Scan(&jobID, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup fingerprint: %w", err)
	}

	at, err := time.Parse(time.RFC3339, registeredAt)
	if err != nil {
		return "", false, fmt.Errorf("parse registered_at %q: %w", registeredAt, err)
	}
	if r.now().Sub(at) > r.retention {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM fingerprints WHERE fingerprint = ? AND registered_at = ?`,
			fingerprint, registeredAt); err != nil {
			return "", false, fmt.Errorf("expire fingerprint: %w", err)
		}
		return "", false, nil
	}
	return jobID, true, nil
}

// Register claims the fingerprint for jobID. When two submissions race,
// exactly one insert wins; the loser gets the winner's job ID back with
// created=false and must not enqueue a second job.
func (r *Registry) Register(ctx context.Context, fingerprint, jobID string) (string, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := r.sweep(ctx); err != nil {
		return "", false, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fingerprints (fingerprint, job_id, registered_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO NOTHING`,
		fingerprint, jobID, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", false, fmt.Errorf("register fingerprint: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("register fingerprint: %w", err)
	}
	if affected == 1 {
		return jobID, true, nil
	}

	// Lost the race: read the winner back.
	var winner string
	if err := r.db.QueryRowContext(ctx,
		`SELECT job_id FROM fingerprints WHERE fingerprint = ?`,
		fingerprint).Scan(&winner); err != nil {
		return "", false, fmt.Errorf("read winning fingerprint: %w", err)
	}
	return winner, false, nil
}

// sweep drops every entry past the retention window.
func (r *Registry) sweep(ctx context.Context) error {
	cutoff := r.now().Add(-r.retention).UTC().Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM fingerprints WHERE registered_at < ?`, cutoff); err != nil {
		return fmt.Errorf("sweep fingerprints: %w", err)
	}
	return nil
}
