package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "b.json", `{"id": "p2", "text": "segundo texto de referência"}`)
	writeCorpusFile(t, dir, "a.json", `{"id": "p1", "title": "Exemplo", "text": "primeiro texto", "quality": 8.5, "themes": ["educação"]}`)
	writeCorpusFile(t, dir, "nested/c.json", `{"id": "p3", "text": "terceiro texto"}`)
	writeCorpusFile(t, dir, "ignore.txt", `not a passage`)

	passages, err := LoadCorpus(dir, "**/*.json")
	require.NoError(t, err)
	require.Len(t, passages, 3)

	// Sorted file order is the corpus order.
	assert.Equal(t, "p1", passages[0].ID)
	assert.Equal(t, "p2", passages[1].ID)
	assert.Equal(t, "p3", passages[2].ID)
	assert.Equal(t, "Exemplo", passages[0].Title)
	assert.InDelta(t, 8.5, passages[0].Quality, 1e-9)
}

func TestLoadCorpusYAML(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.yaml", "id: p1\ntext: texto em yaml\nthemes:\n  - meio ambiente\n")

	passages, err := LoadCorpus(dir, "**/*.yaml")
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, []string{"meio ambiente"}, passages[0].Themes)
}

func TestLoadCorpusRejectsInvalidPassage(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing text", `{"id": "p1"}`},
		{"empty id", `{"id": "", "text": "texto"}`},
		{"unknown field", `{"id": "p1", "text": "texto", "extra": true}`},
		{"quality out of range", `{"id": "p1", "text": "texto", "quality": 11}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCorpusFile(t, dir, "a.json", tt.content)
			_, err := LoadCorpus(dir, "**/*.json")
			require.Error(t, err)
		})
	}
}

func TestLoadCorpusRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "a.json", `{"id": "p1", "text": "um"}`)
	writeCorpusFile(t, dir, "b.json", `{"id": "p1", "text": "dois"}`)

	_, err := LoadCorpus(dir, "**/*.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate passage id")
}

func TestLoadCorpusEmptyDir(t *testing.T) {
	_, err := LoadCorpus(t.TempDir(), "**/*.json")
	require.Error(t, err)
}

func TestLoadCorpusInvalidPattern(t *testing.T) {
	_, err := LoadCorpus(t.TempDir(), "[")
	require.Error(t, err)
}
