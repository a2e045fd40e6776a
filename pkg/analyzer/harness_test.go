package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/pkg/essay"
)

type fakeAnalyzer struct {
	id    string
	score float64
	err   error
	delay time.Duration
	panic bool
}

func (f *fakeAnalyzer) ID() string { return f.id }

func (f *fakeAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{SubScore: f.score}, nil
}

func harnessRequest() Request {
	return Request{Essay: &essay.Essay{ID: "e1", Text: "texto", Language: "pt"}}
}

func TestHarnessPreservesRegistrationOrder(t *testing.T) {
	h := NewHarness([]Analyzer{
		&fakeAnalyzer{id: "a", score: 0.1},
		&fakeAnalyzer{id: "b", score: 0.2},
		&fakeAnalyzer{id: "c", score: 0.3},
	}, DefaultHarnessConfig(), zap.NewNop())

	results := h.Run(context.Background(), harnessRequest())
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].AnalyzerID)
	assert.Equal(t, "b", results[1].AnalyzerID)
	assert.Equal(t, "c", results[2].AnalyzerID)
	for _, r := range results {
		assert.Equal(t, StatusOk, r.Status)
	}
}

func TestHarnessIsolatesFailures(t *testing.T) {
	h := NewHarness([]Analyzer{
		&fakeAnalyzer{id: "ok", score: 0.8},
		&fakeAnalyzer{id: "bad", err: errors.New("model unavailable")},
		&fakeAnalyzer{id: "crash", panic: true},
	}, DefaultHarnessConfig(), zap.NewNop())

	results := h.Run(context.Background(), harnessRequest())
	require.Len(t, results, 3)

	assert.Equal(t, StatusOk, results[0].Status)
	assert.InDelta(t, 0.8, results[0].SubScore, 1e-9)

	assert.Equal(t, StatusErrored, results[1].Status)
	assert.Contains(t, results[1].Err, "ANALYZER_FAILURE")
	assert.Contains(t, results[1].Err, "model unavailable")
	assert.Zero(t, results[1].SubScore)

	assert.Equal(t, StatusErrored, results[2].Status)
	assert.Contains(t, results[2].Err, "ANALYZER_FAILURE")
	assert.Contains(t, results[2].Err, "panic")
}

func TestHarnessTimesOutSlowAnalyzer(t *testing.T) {
	h := NewHarness([]Analyzer{
		&fakeAnalyzer{id: "fast", score: 0.5},
		&fakeAnalyzer{id: "slow", score: 0.9, delay: time.Second},
	}, HarnessConfig{AnalyzerTimeout: 20 * time.Millisecond, JobBudget: 5 * time.Second}, zap.NewNop())

	start := time.Now()
	results := h.Run(context.Background(), harnessRequest())
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, results, 2)
	assert.Equal(t, StatusOk, results[0].Status)
	assert.Equal(t, StatusTimedOut, results[1].Status)
	assert.Zero(t, results[1].SubScore)
	assert.Empty(t, results[1].Findings)
}

func TestHarnessJobBudgetCancelsAll(t *testing.T) {
	h := NewHarness([]Analyzer{
		&fakeAnalyzer{id: "s1", delay: time.Second},
		&fakeAnalyzer{id: "s2", delay: time.Second},
	}, HarnessConfig{AnalyzerTimeout: 5 * time.Second, JobBudget: 20 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	results := h.Run(context.Background(), harnessRequest())
	assert.Less(t, time.Since(start), time.Second)

	for _, r := range results {
		assert.NotEqual(t, StatusOk, r.Status)
	}
}

func TestHarnessClampsScores(t *testing.T) {
	h := NewHarness([]Analyzer{
		&fakeAnalyzer{id: "hot", score: 1.7},
		&fakeAnalyzer{id: "cold", score: -0.3},
	}, DefaultHarnessConfig(), zap.NewNop())

	results := h.Run(context.Background(), harnessRequest())
	assert.Equal(t, 1.0, results[0].SubScore)
	assert.Equal(t, 0.0, results[1].SubScore)
}

func TestDefaultSetCoversAllDimensions(t *testing.T) {
	set := DefaultSet()
	require.Len(t, set, 4)
	ids := make([]string, 0, len(set))
	for _, a := range set {
		ids = append(ids, a.ID())
	}
	assert.Equal(t, []string{"syntax", "usage", "structure", "cohesion"}, ids)
}
