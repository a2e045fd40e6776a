package analyzer

import (
	"context"
	"fmt"
)

// Cohesion looks at how the text flows: repeated word pairs that signal
// missed referential variation, and how many sentences carry a
// transition connective.
type Cohesion struct{}

func NewCohesion() *Cohesion { return &Cohesion{} }

func (c *Cohesion) ID() string { return "cohesion" }

func (c *Cohesion) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text := req.Essay.Text

	var findings []Finding

	// A bigram recurring verbatim suggests a pronoun or synonym was
	// called for. Every occurrence after the first is flagged.
	tokens := tokenSpans(text)
	seen := map[string]int{}
	repeatedKinds := map[string]bool{}
	for i := 0; i+1 < len(tokens); i++ {
		if stopwords[tokens[i].Text] && stopwords[tokens[i+1].Text] {
			continue
		}
		key := tokens[i].Text + " " + tokens[i+1].Text
		seen[key]++
		if seen[key] > 1 {
			repeatedKinds[key] = true
			findings = append(findings, Finding{
				Start:      tokens[i].Start,
				End:        tokens[i+1].End,
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("coesão: repetição de %q; considere um pronome ou sinônimo", key),
				AnalyzerID: c.ID(),
			})
		}
	}

	sents := sentences(text)
	withConnective := 0
	for _, sent := range sents {
		if sentenceHasConnective(sent.Text) {
			withConnective++
		}
	}
	density := 1.0
	if len(sents) > 0 {
		density = float64(withConnective) / float64(len(sents))
	}
	if len(sents) > 3 && density < 0.25 {
		findings = append(findings, Finding{
			Start:      0,
			End:        len(text),
			Severity:   SeverityInfo,
			Message:    "coesão: poucas expressões de transição entre as ideias",
			AnalyzerID: c.ID(),
		})
	}

	score := 0.6 + 0.4*density - 0.05*float64(len(repeatedKinds))
	if score < 0 {
		score = 0
	}
	return Result{SubScore: score, Findings: findings}, nil
}

func sentenceHasConnective(sentence string) bool {
	for _, n := range countConnectives(sentence) {
		if n > 0 {
			return true
		}
	}
	return false
}
