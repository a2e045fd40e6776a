// Package analyzer defines the linguistic analyzer capability and the
// fan-out harness that executes the analyzer set for one job.
//
// Analyzers are independent: none reads another's output, so the set
// runs fully in parallel. A failing or slow analyzer degrades its own
// dimension only; it never fails the job.
package analyzer

import (
	"context"

	"github.com/elysia-ai/corrige/pkg/essay"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities: Error > Warning > Info.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Finding is one issue located in the essay text.
type Finding struct {
	// Start and End are byte offsets into the essay text.
	Start int `json:"start"`
	End   int `json:"end"`

	Severity Severity `json:"severity"`

	// Message is the reader-facing description, in the essay's language.
	Message string `json:"message"`

	AnalyzerID string `json:"analyzer_id"`
}

// Status reports how an analyzer attempt ended.
type Status string

const (
	StatusOk       Status = "ok"
	StatusErrored  Status = "errored"
	StatusTimedOut Status = "timed_out"
)

// Result is the partial result of one analyzer for one job attempt.
// It is produced exactly once per attempt and immutable once emitted.
type Result struct {
	AnalyzerID string `json:"analyzer_id"`

	// SubScore is in [0,1]; only meaningful when Status is ok. An
	// errored or timed-out analyzer contributes no score (missing, not
	// zero).
	SubScore float64 `json:"sub_score"`

	Findings []Finding `json:"findings"`
	Status   Status    `json:"status"`

	// Err describes the failure for errored results.
	Err string `json:"error,omitempty"`
}

// Request carries the read-only inputs shared by all analyzers of a job.
type Request struct {
	Essay *essay.Essay

	// Context holds the retrieved reference passages, consumed read-only.
	Context []retrieval.Hit
}

// Analyzer is the single pluggable capability. New checker kinds are
// added by implementing this interface; the consolidator is untouched.
type Analyzer interface {
	// ID is the stable analyzer identifier (also the scoring dimension).
	ID() string

	// Analyze inspects the essay and returns the analyzer's partial
	// result. Implementations must honor ctx cancellation: the harness
	// discards output that arrives after the deadline.
	Analyze(ctx context.Context, req Request) (Result, error)
}

// DefaultSet returns the four required analyzers in registration order.
func DefaultSet() []Analyzer {
	return []Analyzer{
		NewSyntax(),
		NewUsage(),
		NewStructure(),
		NewCohesion(),
	}
}
