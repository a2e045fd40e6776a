package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

// Syntax checks grammar: missing accents on frequent words, nominal
// agreement, verb regency, and crase.
type Syntax struct {
	accents []accentRule
}

type accentRule struct {
	wrong   string
	right   string
	pattern *regexp.Regexp
}

// NewSyntax builds the syntax analyzer with its rule set compiled.
func NewSyntax() *Syntax {
	wrongs := make([]string, 0, len(accentPairs))
	for w := range accentPairs {
		wrongs = append(wrongs, w)
	}
	sort.Strings(wrongs)

	rules := make([]accentRule, 0, len(wrongs))
	for _, w := range wrongs {
		rules = append(rules, accentRule{
			wrong:   w,
			right:   accentPairs[w],
			pattern: regexp.MustCompile(`(?i)\b` + w + `\b`),
		})
	}
	return &Syntax{accents: rules}
}

func (s *Syntax) ID() string { return "syntax" }

func (s *Syntax) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text := req.Essay.Text

	var findings []Finding
	for _, rule := range s.accents {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Start:      loc[0],
				End:        loc[1],
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("acentuação: %q deve ser escrito %q", text[loc[0]:loc[1]], rule.right),
				AnalyzerID: s.ID(),
			})
		}
	}
	for _, rule := range grammarRules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			findings = append(findings, Finding{
				Start:      loc[0],
				End:        loc[1],
				Severity:   rule.severity,
				Message:    rule.message,
				AnalyzerID: s.ID(),
			})
		}
	}

	errors, warnings := 0, 0
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	score := 1.0 - 0.1*float64(errors) - 0.05*float64(warnings)
	if score < 0 {
		score = 0
	}

	return Result{SubScore: score, Findings: findings}, nil
}
