package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohesionFlagsRepeatedBigram(t *testing.T) {
	text := "O gato correu rapido e o gato pulou."
	res := analyzeText(t, NewCohesion(), text)

	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, SeverityInfo, f.Severity)
	assert.Contains(t, f.Message, `"o gato"`)
	assert.Equal(t, "o gato", text[f.Start:f.End])
	assert.Equal(t, "cohesion", f.AnalyzerID)
}

func TestCohesionIgnoresStopwordOnlyBigrams(t *testing.T) {
	text := "A casa fica perto. De a por se nada depende. A casa permanece."
	res := analyzeText(t, NewCohesion(), text)

	for _, f := range res.Findings {
		assert.NotContains(t, f.Message, `"de a"`)
	}
}

func TestCohesionFlagsLowTransitionDensity(t *testing.T) {
	text := "O sol nasce. A chuva cai. O vento sopra. A noite chega. O dia volta."
	res := analyzeText(t, NewCohesion(), text)

	found := false
	for _, f := range res.Findings {
		if f.Severity == SeverityInfo && f.Start == 0 && f.End == len(text) {
			found = true
		}
	}
	assert.True(t, found, "expected a transition-density finding")
}

func TestCountConnectives(t *testing.T) {
	counts := countConnectives("Choveu muito. No entanto, saímos. Além disso, cantamos e dançamos.")

	assert.Equal(t, 1, counts["contraste"])
	// "além disso" counts once as a phrase; the free-standing "e" counts
	// on its own word boundary.
	assert.Equal(t, 2, counts["adição"])

	// A word inside a multi-word connective can also count for its own
	// relation: "assim que" scores tempo and its "assim" scores conclusão.
	counts = countConnectives("Saí assim que parou a chuva.")
	assert.Equal(t, 1, counts["tempo"])
	assert.Equal(t, 1, counts["conclusão"])
}

func TestCohesionConnectedTextScoresHigh(t *testing.T) {
	text := "A leitura importa pois forma cidadãos críticos. Além disso, amplia o repertório cultural. Portanto, bibliotecas merecem investimento."
	res := analyzeText(t, NewCohesion(), text)

	assert.Empty(t, res.Findings)
	assert.InDelta(t, 1.0, res.SubScore, 1e-9)
}
