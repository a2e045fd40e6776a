package analyzer

import (
	"context"
	"fmt"
	"strings"
)

// Structure evaluates paragraph organization against the usual
// dissertative shape: one introduction, two or three development
// paragraphs, one conclusion.
type Structure struct{}

func NewStructure() *Structure { return &Structure{} }

func (s *Structure) ID() string { return "structure" }

func (s *Structure) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text := req.Essay.Text
	paras := paragraphs(text)

	var findings []Finding
	switch {
	case len(paras) <= 1:
		findings = append(findings, Finding{
			Start:      0,
			End:        len(text),
			Severity:   SeverityWarning,
			Message:    "estrutura: redação em um único parágrafo; separe introdução, desenvolvimento e conclusão",
			AnalyzerID: s.ID(),
		})
	case len(paras) < structureIdeal.minParagraphs:
		findings = append(findings, Finding{
			Start:      0,
			End:        len(text),
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("estrutura: apenas %d parágrafos; o formato dissertativo pede ao menos %d", len(paras), structureIdeal.minParagraphs),
			AnalyzerID: s.ID(),
		})
	}

	if len(paras) >= structureIdeal.minParagraphs {
		last := paras[len(paras)-1]
		if !startsWithRelation(last.Text, "conclusão") {
			findings = append(findings, Finding{
				Start:      last.Start,
				End:        last.End,
				Severity:   SeverityInfo,
				Message:    "estrutura: o parágrafo final não sinaliza conclusão (portanto, dessa forma, logo)",
				AnalyzerID: s.ID(),
			})
		}

		// Overlong development blocks read as unplanned text.
		body := paras[1 : len(paras)-1]
		if len(body) > structureIdeal.devMax {
			findings = append(findings, Finding{
				Start:      body[structureIdeal.devMax].Start,
				End:        body[len(body)-1].End,
				Severity:   SeverityInfo,
				Message:    fmt.Sprintf("estrutura: %d parágrafos de desenvolvimento; o ideal fica entre %d e %d", len(body), structureIdeal.devMin, structureIdeal.devMax),
				AnalyzerID: s.ID(),
			})
		}
	}

	score := 1.0
	for _, f := range findings {
		switch f.Severity {
		case SeverityWarning:
			score -= 0.25
		case SeverityInfo:
			score -= 0.05
		}
	}
	if score < 0 {
		score = 0
	}
	return Result{SubScore: score, Findings: findings}, nil
}

// startsWithRelation reports whether any connective of the relation
// occurs among the first twelve words of the paragraph.
func startsWithRelation(para, relation string) bool {
	ws := words(para)
	if len(ws) > 12 {
		ws = ws[:12]
	}
	head := " " + strings.Join(ws, " ") + " "
	for _, c := range connectives[relation] {
		if strings.Contains(head, " "+c+" ") {
			return true
		}
	}
	return false
}
