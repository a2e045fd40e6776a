// Package report holds the correction report model and the
// consolidator that folds analyzer results into one report.
package report

import (
	"strings"
	"time"

	"github.com/elysia-ai/corrige/pkg/analyzer"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

// CorrectionReport is the job outcome persisted and returned to
// clients. Scores are in [0,1].
type CorrectionReport struct {
	JobID string `json:"job_id"`

	// OverallScore is the weighted mean over the dimensions that
	// produced a score, with weights renormalized over those dimensions.
	OverallScore float64 `json:"overall_score"`

	// DimensionScores has one entry per analyzer that finished ok.
	// Failed analyzers are absent, not zero.
	DimensionScores map[string]float64 `json:"dimension_scores"`

	Findings []analyzer.Finding `json:"findings"`

	// Partial marks reports consolidated from fewer successful
	// analyzers than the configured minimum.
	Partial bool `json:"partial"`

	Metrics     TextMetrics `json:"metrics"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// TextMetrics are surface statistics of the corrected essay.
type TextMetrics struct {
	Words                int     `json:"words"`
	Sentences            int     `json:"sentences"`
	Paragraphs           int     `json:"paragraphs"`
	AvgWordsPerSentence  float64 `json:"avg_words_per_sentence"`
	AvgWordsPerParagraph float64 `json:"avg_words_per_paragraph"`
}

// ComputeTextMetrics measures the essay text. Sentences end at terminal
// punctuation; paragraphs are blank-line separated.
func ComputeTextMetrics(text string) TextMetrics {
	m := TextMetrics{Words: len(retrieval.Tokenize(text))}

	inSentence := false
	for _, r := range text {
		switch r {
		case '.', '!', '?', '…':
			if inSentence {
				m.Sentences++
				inSentence = false
			}
		default:
			if !isSpace(r) {
				inSentence = true
			}
		}
	}
	if inSentence {
		m.Sentences++
	}

	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			m.Paragraphs++
		}
	}

	if m.Sentences > 0 {
		m.AvgWordsPerSentence = float64(m.Words) / float64(m.Sentences)
	}
	if m.Paragraphs > 0 {
		m.AvgWordsPerParagraph = float64(m.Words) / float64(m.Paragraphs)
	}
	return m
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
