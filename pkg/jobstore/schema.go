package jobstore

import (
	"context"
	"database/sql"
	"fmt"
)

const SchemaVersion = 1

// Migrate creates (or upgrades) the job schema in-place.
//
// The schema supports:
// - job rows mirroring every queue transition
// - consolidated correction reports, one per completed job
// - content fingerprints for submission dedup
func Migrate(ctx context.Context, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,

		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			essay_id TEXT NOT NULL,
			essay_text TEXT NOT NULL,
			language TEXT NOT NULL,
			submitted_at TEXT NOT NULL,
			status TEXT NOT NULL,
			priority INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			worker_id TEXT,
			last_error TEXT,
			last_error_reason TEXT,
			created_at TEXT NOT NULL,
			lease_expiry TEXT,
			next_attempt_at TEXT,
			completed_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_fingerprint ON jobs(fingerprint);`,

		`CREATE TABLE IF NOT EXISTS reports (
			job_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			FOREIGN KEY(job_id) REFERENCES jobs(job_id)
		);`,

		`CREATE TABLE IF NOT EXISTS fingerprints (
			fingerprint TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			registered_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fingerprints_registered_at ON fingerprints(registered_at);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	if current != SchemaVersion {
		if _, err := tx.ExecContext(ctx, `UPDATE schema_meta SET schema_version=? WHERE id=1`, SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
