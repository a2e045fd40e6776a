package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedEssay = "A educação é a base de qualquer sociedade que pretende evoluir.\n\n" +
	"Em primeiro lugar, escolas bem equipadas ampliam as oportunidades dos estudantes.\n\n" +
	"Além disso, professores valorizados permanecem na carreira e ensinam melhor.\n\n" +
	"Portanto, investir em educação é investir no futuro coletivo do país."

func TestStructureAcceptsWellFormedEssay(t *testing.T) {
	res := analyzeText(t, NewStructure(), wellFormedEssay)

	assert.Empty(t, res.Findings)
	assert.InDelta(t, 1.0, res.SubScore, 1e-9)
}

func TestStructureFlagsSingleParagraph(t *testing.T) {
	text := "Tudo em um único bloco de texto sem divisão alguma."
	res := analyzeText(t, NewStructure(), text)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, SeverityWarning, res.Findings[0].Severity)
	assert.Contains(t, res.Findings[0].Message, "único parágrafo")
	assert.InDelta(t, 0.75, res.SubScore, 1e-9)
}

func TestStructureFlagsTooFewParagraphs(t *testing.T) {
	text := "Primeiro parágrafo.\n\nSegundo parágrafo."
	res := analyzeText(t, NewStructure(), text)

	require.Len(t, res.Findings, 1)
	assert.Equal(t, SeverityWarning, res.Findings[0].Severity)
	assert.Contains(t, res.Findings[0].Message, "parágrafos")
}

func TestStructureFlagsMissingConclusionSignal(t *testing.T) {
	text := "Introdução do tema.\n\nDesenvolvimento da ideia central.\n\nFecho abrupto sem marcador."
	res := analyzeText(t, NewStructure(), text)

	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, SeverityInfo, f.Severity)
	assert.Contains(t, f.Message, "conclusão")
	assert.Equal(t, "Fecho abrupto sem marcador.", text[f.Start:f.End])
}

func TestStructureFlagsOverlongDevelopment(t *testing.T) {
	blocks := []string{"Introdução do tema central."}
	for range 5 {
		blocks = append(blocks, "Mais um parágrafo de desenvolvimento da ideia.")
	}
	blocks = append(blocks, "Portanto, encerramos o argumento.")
	res := analyzeText(t, NewStructure(), strings.Join(blocks, "\n\n"))

	require.Len(t, res.Findings, 1)
	assert.Equal(t, SeverityInfo, res.Findings[0].Severity)
	assert.Contains(t, res.Findings[0].Message, "desenvolvimento")
}
