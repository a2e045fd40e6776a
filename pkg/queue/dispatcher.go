// Package queue implements the correction job queue and dispatcher.
//
// Delivery is at-least-once: a leased job whose worker stops
// heartbeating becomes re-leasable after its lease expires. Retries use
// exponential backoff with jitter bounded by a maximum attempt count;
// exhausting it dead-letters the job. Lease ordering respects priority
// (ties broken by enqueue time) with a fairness aging rule so low
// priority jobs are never starved indefinitely.
//
// Every state transition is journaled before it is acknowledged, so a
// restarted process can rebuild queue state from the job store.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/internal/metrics"
)

var (
	// ErrJobNotFound indicates the job id is unknown to the dispatcher.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotLeaseHolder indicates the caller does not hold the job's lease.
	ErrNotLeaseHolder = errors.New("worker does not hold the job lease")

	// ErrTerminalState indicates a transition was attempted on a finished job.
	ErrTerminalState = errors.New("job is in a terminal state")
)

// Journal durably records a job state transition before the dispatcher
// acknowledges it (write-ahead-of-acknowledgment).
type Journal interface {
	RecordTransition(ctx context.Context, job *Job) error
}

// Config tunes dispatcher behavior.
type Config struct {
	// LeaseTimeout is the lease duration granted on Lease and renewed by
	// Heartbeat.
	LeaseTimeout time.Duration

	// MaxAttempts bounds leases per job before dead-lettering.
	MaxAttempts int

	// Backoff computes retry delays.
	Backoff Backoff

	// AgingThreshold promotes a waiting job one priority tier per
	// elapsed threshold when ordering leases.
	AgingThreshold time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		LeaseTimeout:   30 * time.Second,
		MaxAttempts:    3,
		Backoff:        Backoff{Base: 500 * time.Millisecond, Cap: 30 * time.Second},
		AgingThreshold: 60 * time.Second,
	}
}

// Dispatcher owns the in-memory queue state. All methods are safe for
// concurrent use; the lease is the only mutual-exclusion mechanism for
// job ownership beyond the dispatcher's own lock.
type Dispatcher struct {
	cfg     Config
	journal Journal
	logger  *zap.Logger
	met     *metrics.Metrics

	mu   sync.Mutex
	jobs map[string]*Job

	// now is injectable for tests.
	now func() time.Time
}

// New creates a dispatcher. journal may not be nil: every transition is
// durably recorded before it takes effect. met may be nil.
func New(cfg Config, journal Journal, logger *zap.Logger, met *metrics.Metrics) *Dispatcher {
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = DefaultConfig().LeaseTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.AgingThreshold <= 0 {
		cfg.AgingThreshold = DefaultConfig().AgingThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:     cfg,
		journal: journal,
		logger:  logger,
		met:     met,
		jobs:    make(map[string]*Job),
		now:     time.Now,
	}
}

// Enqueue accepts a job into the queue.
//
// The job must be new (status empty or pending). The pending transition
// is journaled before the job becomes leasable.
func (d *Dispatcher) Enqueue(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if job.Essay == nil {
		return fmt.Errorf("job %s has no essay reference", job.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already enqueued", job.ID)
	}

	j := job.clone()
	j.Status = StatusPending
	if j.CreatedAt.IsZero() {
		j.CreatedAt = d.now().UTC()
	}

	if err := d.journal.RecordTransition(ctx, j); err != nil {
		return fmt.Errorf("journal enqueue: %w", err)
	}

	d.jobs[j.ID] = j
	if d.met != nil {
		d.met.JobsEnqueued.Inc()
		d.met.JobsPending.Inc()
	}
	d.logger.Debug("job enqueued",
		zap.String("job_id", j.ID),
		zap.Int("priority", j.Priority))
	return nil
}

// Lease hands the highest-priority eligible job to the worker, or nil
// when none is eligible. It never double-leases a job with an unexpired
// lease; expired leases are reclaimed (and count as a failed attempt)
// before selection.
func (d *Dispatcher) Lease(ctx context.Context, workerID string) (*Job, error) {
	if workerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()
	if err := d.reclaimExpiredLocked(ctx, now); err != nil {
		return nil, err
	}

	best := d.selectPendingLocked(now)
	if best == nil {
		return nil, nil
	}

	prev := *best
	best.Status = StatusLeased
	best.WorkerID = workerID
	best.Attempts++
	best.LeaseExpiry = now.Add(d.cfg.LeaseTimeout)

	if err := d.journal.RecordTransition(ctx, best); err != nil {
		*best = prev
		return nil, fmt.Errorf("journal lease: %w", err)
	}

	if d.met != nil {
		d.met.JobsPending.Dec()
		d.met.JobsLeased.Inc()
	}
	d.logger.Debug("job leased",
		zap.String("job_id", best.ID),
		zap.String("worker_id", workerID),
		zap.Int("attempt", best.Attempts))
	return best.clone(), nil
}

// selectPendingLocked picks the eligible pending job with the highest
// effective priority; ties break by enqueue time, oldest first.
//
// Selection is a linear scan over pending jobs: the effective priority
// is time-dependent (aging), so a static heap order would go stale.
func (d *Dispatcher) selectPendingLocked(now time.Time) *Job {
	var best *Job
	var bestPrio int
	for _, j := range d.jobs {
		if j.Status != StatusPending {
			continue
		}
		if !j.NextAttemptAt.IsZero() && now.Before(j.NextAttemptAt) {
			continue
		}
		prio := d.effectivePriority(j, now)
		if best == nil || prio > bestPrio ||
			(prio == bestPrio && j.CreatedAt.Before(best.CreatedAt)) ||
			(prio == bestPrio && j.CreatedAt.Equal(best.CreatedAt) && j.ID < best.ID) {
			best = j
			bestPrio = prio
		}
	}
	return best
}

// effectivePriority adds one tier per AgingThreshold of wait so old
// low-priority jobs eventually outrank fresh high-priority ones.
func (d *Dispatcher) effectivePriority(j *Job, now time.Time) int {
	waited := now.Sub(j.CreatedAt)
	if waited <= 0 {
		return j.Priority
	}
	return j.Priority + int(waited/d.cfg.AgingThreshold)
}

// reclaimExpiredLocked requeues (or dead-letters) jobs whose lease
// expired without a heartbeat.
func (d *Dispatcher) reclaimExpiredLocked(ctx context.Context, now time.Time) error {
	for _, j := range d.jobs {
		if j.Status != StatusLeased && j.Status != StatusRunning {
			continue
		}
		if now.Before(j.LeaseExpiry) {
			continue
		}

		prev := *j
		j.WorkerID = ""
		j.LastError = "lease expired without heartbeat"
		j.LastErrorReason = "LEASE_EXPIRED"
		if j.Attempts >= d.cfg.MaxAttempts {
			j.Status = StatusDeadLettered
			j.CompletedAt = now
		} else {
			// No extra backoff here: the lease timeout itself has already
			// delayed the retry, and reclaim runs lazily at lease time so
			// a deadline relative to now would never be reached within
			// the reclaiming call.
			j.Status = StatusPending
			j.NextAttemptAt = time.Time{}
		}

		if err := d.journal.RecordTransition(ctx, j); err != nil {
			*j = prev
			return fmt.Errorf("journal lease reclaim: %w", err)
		}

		if d.met != nil {
			d.met.JobsLeased.Dec()
			if j.Status == StatusDeadLettered {
				d.met.JobsDeadLettered.Inc()
			} else {
				d.met.JobsPending.Inc()
			}
		}
		d.logger.Warn("lease expired",
			zap.String("job_id", j.ID),
			zap.String("status", string(j.Status)),
			zap.Int("attempts", j.Attempts))
	}
	return nil
}

// MarkRunning transitions a leased job to running. Only the lease
// holder may call it.
func (d *Dispatcher) MarkRunning(ctx context.Context, jobID, workerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, err := d.heldJobLocked(jobID, workerID)
	if err != nil {
		return err
	}

	prev := *j
	j.Status = StatusRunning
	if err := d.journal.RecordTransition(ctx, j); err != nil {
		*j = prev
		return fmt.Errorf("journal running: %w", err)
	}
	return nil
}

// Heartbeat renews the caller's lease.
func (d *Dispatcher) Heartbeat(ctx context.Context, jobID, workerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, err := d.heldJobLocked(jobID, workerID)
	if err != nil {
		return err
	}

	prev := *j
	j.LeaseExpiry = d.now().UTC().Add(d.cfg.LeaseTimeout)
	if err := d.journal.RecordTransition(ctx, j); err != nil {
		*j = prev
		return fmt.Errorf("journal heartbeat: %w", err)
	}
	return nil
}

// Complete marks a job succeeded. Only the lease holder may call it.
func (d *Dispatcher) Complete(ctx context.Context, jobID, workerID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, err := d.heldJobLocked(jobID, workerID)
	if err != nil {
		return err
	}

	now := d.now().UTC()
	prev := *j
	j.Status = StatusSucceeded
	j.CompletedAt = now
	j.WorkerID = ""
	j.LastError = ""
	j.LastErrorReason = ""

	if err := d.journal.RecordTransition(ctx, j); err != nil {
		*j = prev
		return fmt.Errorf("journal complete: %w", err)
	}

	if d.met != nil {
		d.met.JobsLeased.Dec()
		d.met.JobsCompleted.Inc()
	}
	d.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.Int("attempts", j.Attempts))
	return nil
}

// Fail records a failed attempt. Retryable failures are requeued with
// backoff until MaxAttempts, then dead-lettered; permanent failures are
// terminal immediately.
func (d *Dispatcher) Fail(ctx context.Context, jobID, workerID string, cause error, retryable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	j, err := d.heldJobLocked(jobID, workerID)
	if err != nil {
		return err
	}

	now := d.now().UTC()
	prev := *j
	j.WorkerID = ""
	if cause != nil {
		j.LastError = cause.Error()
	}

	switch {
	case !retryable:
		j.Status = StatusFailed
		j.CompletedAt = now
	case j.Attempts >= d.cfg.MaxAttempts:
		j.Status = StatusDeadLettered
		j.CompletedAt = now
	default:
		j.Status = StatusPending
		j.NextAttemptAt = now.Add(d.cfg.Backoff.Delay(j.Attempts))
	}

	if err := d.journal.RecordTransition(ctx, j); err != nil {
		*j = prev
		return fmt.Errorf("journal fail: %w", err)
	}

	if d.met != nil {
		d.met.JobsLeased.Dec()
		d.met.JobsFailed.Inc()
		switch j.Status {
		case StatusDeadLettered:
			d.met.JobsDeadLettered.Inc()
		case StatusPending:
			d.met.JobsPending.Inc()
		}
	}
	d.logger.Warn("job attempt failed",
		zap.String("job_id", jobID),
		zap.String("status", string(j.Status)),
		zap.Int("attempts", j.Attempts),
		zap.Bool("retryable", retryable),
		zap.Error(cause))
	return nil
}

// SetLastErrorReason attaches a stable reason code to the job's last
// error, for caller-visible permanent failures.
func (d *Dispatcher) SetLastErrorReason(jobID, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if j, ok := d.jobs[jobID]; ok {
		j.LastErrorReason = reason
	}
}

// Get returns a copy of the job, or ErrJobNotFound.
func (d *Dispatcher) Get(jobID string) (*Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	j, ok := d.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.clone(), nil
}

// DeadLettered returns copies of all dead-lettered jobs. They are never
// dropped: each retains its last error for inspection or caller-driven
// resubmission.
func (d *Dispatcher) DeadLettered() []*Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Job
	for _, j := range d.jobs {
		if j.Status == StatusDeadLettered {
			out = append(out, j.clone())
		}
	}
	return out
}

// Restore loads a previously journaled job into the dispatcher without
// journaling again. Used at startup to rebuild queue state; leased jobs
// are restored as pending since their workers are gone.
func (d *Dispatcher) Restore(job *Job) {
	if job == nil || job.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	j := job.clone()
	if j.Status == StatusLeased || j.Status == StatusRunning {
		j.Status = StatusPending
		j.WorkerID = ""
	}
	d.jobs[j.ID] = j
	if d.met != nil && j.Status == StatusPending {
		d.met.JobsPending.Inc()
	}
}

func (d *Dispatcher) heldJobLocked(jobID, workerID string) (*Job, error) {
	j, ok := d.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if j.Status.Terminal() {
		return nil, ErrTerminalState
	}
	if j.Status != StatusLeased && j.Status != StatusRunning {
		return nil, ErrNotLeaseHolder
	}
	if j.WorkerID != workerID {
		return nil, ErrNotLeaseHolder
	}
	return j, nil
}
