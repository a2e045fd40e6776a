package report

import (
	"sort"
	"time"

	"github.com/elysia-ai/corrige/pkg/analyzer"
)

// ConsolidatorConfig tunes scoring and finding dedup.
type ConsolidatorConfig struct {
	// Weights maps analyzer IDs to their share of the overall score.
	Weights map[string]float64

	// OverlapThreshold is the span-overlap fraction (intersection over
	// union) above which two same-severity findings count as one.
	OverlapThreshold float64

	// MinSuccess is the successful-analyzer count below which the
	// report is marked partial.
	MinSuccess int
}

// DefaultConsolidatorConfig returns the standard dimension weights.
func DefaultConsolidatorConfig() ConsolidatorConfig {
	return ConsolidatorConfig{
		Weights: map[string]float64{
			"syntax":    0.30,
			"usage":     0.20,
			"structure": 0.25,
			"cohesion":  0.25,
		},
		OverlapThreshold: 0.5,
		MinSuccess:       3,
	}
}

// Consolidator turns a result set into a correction report. It is a
// pure transformation: identical inputs yield identical reports.
type Consolidator struct {
	cfg ConsolidatorConfig
	now func() time.Time
}

func NewConsolidator(cfg ConsolidatorConfig) *Consolidator {
	if cfg.Weights == nil {
		cfg.Weights = DefaultConsolidatorConfig().Weights
	}
	if cfg.OverlapThreshold <= 0 {
		cfg.OverlapThreshold = DefaultConsolidatorConfig().OverlapThreshold
	}
	return &Consolidator{cfg: cfg, now: time.Now}
}

// Consolidate builds the report for one job attempt. Results from
// errored or timed-out analyzers contribute neither score nor findings;
// their weight is redistributed across the dimensions that did finish.
func (c *Consolidator) Consolidate(jobID string, results []analyzer.Result, metrics TextMetrics) CorrectionReport {
	scores := map[string]float64{}
	var findings []analyzer.Finding
	succeeded := 0

	for _, res := range results {
		if res.Status != analyzer.StatusOk {
			continue
		}
		succeeded++
		scores[res.AnalyzerID] = res.SubScore
		findings = append(findings, res.Findings...)
	}

	// Accumulate in sorted dimension order: float addition is not
	// associative, and map iteration order would leak into the score.
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	weightSum, weighted := 0.0, 0.0
	for _, id := range ids {
		w := c.cfg.Weights[id]
		weightSum += w
		weighted += w * scores[id]
	}
	overall := 0.0
	if weightSum > 0 {
		overall = weighted / weightSum
	}

	return CorrectionReport{
		JobID:           jobID,
		OverallScore:    overall,
		DimensionScores: scores,
		Findings:        c.dedup(findings),
		Partial:         succeeded < c.cfg.MinSuccess,
		Metrics:         metrics,
		GeneratedAt:     c.now().UTC(),
	}
}

// dedup collapses same-severity findings whose spans overlap beyond
// the threshold, keeping the lexicographically first analyzer's
// finding regardless of which span starts earlier, then sorts the
// survivors into the canonical report order.
func (c *Consolidator) dedup(findings []analyzer.Finding) []analyzer.Finding {
	sortFindings(findings)

	kept := make([]analyzer.Finding, 0, len(findings))
	for _, f := range findings {
		dup := false
		for i, k := range kept {
			if k.Severity != f.Severity || c.overlap(k, f) < c.cfg.OverlapThreshold {
				continue
			}
			if f.AnalyzerID < k.AnalyzerID {
				kept[i] = f
			}
			dup = true
			break
		}
		if !dup {
			kept = append(kept, f)
		}
	}

	sortFindings(kept)
	return kept
}

// sortFindings orders findings by span start, then severity (highest
// first), then analyzer id, then span end.
func sortFindings(findings []analyzer.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.AnalyzerID != b.AnalyzerID {
			return a.AnalyzerID < b.AnalyzerID
		}
		return a.End < b.End
	})
}

// overlap is the intersection length over the union length, so a tiny
// finding inside a document-wide one does not count as its duplicate.
func (c *Consolidator) overlap(a, b analyzer.Finding) float64 {
	lo := max(a.Start, b.Start)
	hi := min(a.End, b.End)
	if hi <= lo {
		return 0
	}
	union := max(a.End, b.End) - min(a.Start, b.Start)
	if union <= 0 {
		return 0
	}
	return float64(hi-lo) / float64(union)
}
