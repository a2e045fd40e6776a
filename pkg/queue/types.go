package queue

import (
	"time"

	"github.com/elysia-ai/corrige/pkg/essay"
)

// Status is the lifecycle state of a correction job.
//
// NOTE: These values are persisted in the job store and are part of the
// stable on-disk contract.
type Status string

const (
	StatusPending      Status = "pending"
	StatusLeased       Status = "leased"
	StatusRunning      Status = "running"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
	StatusDeadLettered Status = "dead_lettered"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusDeadLettered
}

// Job is a correction job. It references the caller-owned essay and is
// mutated only by the Dispatcher and the worker holding its lease.
type Job struct {
	ID          string       `json:"id"`
	Essay       *essay.Essay `json:"essay"`
	Fingerprint string       `json:"fingerprint"`
	Status      Status       `json:"status"`

	// Priority orders leasing; higher first. Never mutated after enqueue:
	// fairness aging is applied at lease time, not stored.
	Priority int `json:"priority"`

	// Attempts counts leases handed out for this job.
	Attempts int `json:"attempts"`

	CreatedAt     time.Time `json:"created_at"`
	LeaseExpiry   time.Time `json:"lease_expiry,omitzero"`
	NextAttemptAt time.Time `json:"next_attempt_at,omitzero"`
	CompletedAt   time.Time `json:"completed_at,omitzero"`

	// WorkerID identifies the current lease holder.
	WorkerID string `json:"worker_id,omitempty"`

	// LastError and LastErrorReason record the most recent failure for
	// audit and dead-letter inspection.
	LastError       string `json:"last_error,omitempty"`
	LastErrorReason string `json:"last_error_reason,omitempty"`
}

// clone returns a copy safe to hand outside the dispatcher lock.
func (j *Job) clone() *Job {
	c := *j
	return &c
}
