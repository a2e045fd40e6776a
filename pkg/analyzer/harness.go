package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
)

// HarnessConfig tunes analyzer execution for one job.
type HarnessConfig struct {
	// AnalyzerTimeout bounds each analyzer call.
	AnalyzerTimeout time.Duration

	// JobBudget caps total analyzer wall-time for the job. When it is
	// exhausted, unfinished analyzers are cancelled and reported as
	// timed out; consolidation proceeds with what is available.
	JobBudget time.Duration
}

// DefaultHarnessConfig returns the default execution limits.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{
		AnalyzerTimeout: 10 * time.Second,
		JobBudget:       30 * time.Second,
	}
}

// Harness fans a request out to the analyzer set and fans the partial
// results back in. It is safe for concurrent use across jobs.
type Harness struct {
	analyzers []Analyzer
	cfg       HarnessConfig
	logger    *zap.Logger
}

// NewHarness creates a harness over the given analyzers.
func NewHarness(analyzers []Analyzer, cfg HarnessConfig, logger *zap.Logger) *Harness {
	if cfg.AnalyzerTimeout <= 0 {
		cfg.AnalyzerTimeout = DefaultHarnessConfig().AnalyzerTimeout
	}
	if cfg.JobBudget <= 0 {
		cfg.JobBudget = DefaultHarnessConfig().JobBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{analyzers: analyzers, cfg: cfg, logger: logger}
}

// Run executes all analyzers concurrently and blocks until every one
// has returned or the job budget elapses, whichever comes first. This
// is the only intra-job suspension point.
//
// Results are returned in registration order, one per analyzer, always
// len(analyzers) long: a crashed, errored, or timed-out analyzer yields
// a result with the corresponding status, no findings, and no score.
func (h *Harness) Run(ctx context.Context, req Request) []Result {
	budgetCtx, cancel := context.WithTimeout(ctx, h.cfg.JobBudget)
	defer cancel()

	results := make([]Result, len(h.analyzers))
	var wg sync.WaitGroup

	for i, a := range h.analyzers {
		wg.Add(1)
		go func(slot int, a Analyzer) {
			defer wg.Done()
			results[slot] = h.runOne(budgetCtx, a, req)
		}(i, a)
	}

	wg.Wait()
	return results
}

// runOne executes a single analyzer under its own timeout, converting
// panics, errors, and deadline overruns into degraded results.
func (h *Harness) runOne(ctx context.Context, a Analyzer, req Request) Result {
	actx, cancel := context.WithTimeout(ctx, h.cfg.AnalyzerTimeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		res, err := a.Analyze(actx, req)
		done <- outcome{result: res, err: err}
	}()

	select {
	case <-actx.Done():
		// Partial output, if any arrives later, is discarded: the
		// goroutine writes into a buffered channel nobody reads.
		h.logger.Warn("analyzer timed out",
			zap.String("analyzer", a.ID()),
			zap.Duration("timeout", h.cfg.AnalyzerTimeout))
		return Result{AnalyzerID: a.ID(), Status: StatusTimedOut}
	case out := <-done:
		if out.err != nil {
			// Classified per-dimension: one analyzer failing degrades its
			// dimension, it never fails the job.
			ferr := apperrors.AnalyzerFailure(a.ID(), out.err)
			h.logger.Warn("analyzer failed",
				zap.String("analyzer", a.ID()),
				zap.Error(ferr))
			return Result{AnalyzerID: a.ID(), Status: StatusErrored, Err: ferr.Error()}
		}
		res := out.result
		res.AnalyzerID = a.ID()
		if res.Status == "" {
			res.Status = StatusOk
		}
		res.SubScore = clamp01(res.SubScore)
		return res
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
