package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elysia-ai/corrige/pkg/report"
)

// ErrReportNotFound is returned when no report exists for a job.
var ErrReportNotFound = errors.New("report not found")

// SaveReport persists the consolidated report. The worker saves the
// report before acknowledging the job, so a crash between the two
// leaves a re-runnable job, never a lost report.
func (s *Store) SaveReport(ctx context.Context, rep report.CorrectionReport) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report for %s: %w", rep.JobID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (job_id, payload, generated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		   payload = excluded.payload,
		   generated_at = excluded.generated_at`,
		rep.JobID, string(payload), formatTime(rep.GeneratedAt))
	if err != nil {
		return fmt.Errorf("save report for %s: %w", rep.JobID, err)
	}
	return nil
}

// GetReport returns the report for a job, or ErrReportNotFound.
func (s *Store) GetReport(ctx context.Context, jobID string) (*report.CorrectionReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE job_id = ?`, jobID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report for %s: %w", jobID, err)
	}

	var rep report.CorrectionReport
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return nil, fmt.Errorf("decode report for %s: %w", jobID, err)
	}
	return &rep, nil
}
