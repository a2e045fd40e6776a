package analyzer

import (
	"context"
	"fmt"
)

// Usage evaluates word choice: conjunction overuse inside a sentence,
// runs of sentences opened by the same connective, and lexical
// diversity. When reference passages are available their diversity
// calibrates the expectation; otherwise a fixed floor applies.
type Usage struct{}

func NewUsage() *Usage { return &Usage{} }

func (u *Usage) ID() string { return "usage" }

const (
	maxConjunctionPerSentence = 3
	defaultDiversityFloor     = 0.4
)

func (u *Usage) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text := req.Essay.Text
	sents := sentences(text)

	var findings []Finding
	for _, sent := range sents {
		count := 0
		for _, w := range words(sent.Text) {
			if w == "e" {
				count++
			}
		}
		if count > maxConjunctionPerSentence {
			findings = append(findings, Finding{
				Start:      sent.Start,
				End:        sent.End,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("uso: a conjunção \"e\" aparece %d vezes na mesma frase", count),
				AnalyzerID: u.ID(),
			})
		}
	}

	prev := ""
	for _, sent := range sents {
		_, conn := leadingConnective(sent.Text)
		if conn != "" && conn == prev {
			findings = append(findings, Finding{
				Start:      sent.Start,
				End:        sent.Start + len(conn),
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("uso: frases consecutivas iniciadas por %q", conn),
				AnalyzerID: u.ID(),
			})
		}
		prev = conn
	}

	ws := words(text)
	diversity := lexicalDiversity(ws)
	floor := defaultDiversityFloor
	if ref := referenceDiversity(req); ref > 0 {
		// Essays are held to a softened version of the reference level.
		floor = min(0.6, ref*0.8)
	}
	if len(ws) >= 10 && diversity < floor {
		findings = append(findings, Finding{
			Start:      0,
			End:        len(text),
			Severity:   SeverityInfo,
			Message:    "uso: vocabulário pouco variado em relação ao esperado",
			AnalyzerID: u.ID(),
		})
	}

	score := 0.5 + 0.5*min(1, diversity/0.6)
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			score -= 0.05
		}
	}
	if score < 0 {
		score = 0
	}
	return Result{SubScore: score, Findings: findings}, nil
}

// referenceDiversity averages the lexical diversity of the retrieved
// passages, or 0 when none are available.
func referenceDiversity(req Request) float64 {
	if len(req.Context) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range req.Context {
		sum += lexicalDiversity(words(h.Passage.Text))
	}
	return sum / float64(len(req.Context))
}
