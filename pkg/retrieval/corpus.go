package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	schemasassets "github.com/elysia-ai/corrige/internal/assets/schemas"
)

const passageSchemaID = "corrige/v1.0.0/corpus-passage"

var passageSchema = mustCompilePassageSchema()

func mustCompilePassageSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(passageSchemaID, bytes.NewReader(schemasassets.CorpusPassageSchema)); err != nil {
		panic(fmt.Sprintf("add corpus passage schema: %v", err))
	}
	schema, err := compiler.Compile(passageSchemaID)
	if err != nil {
		panic(fmt.Sprintf("compile corpus passage schema: %v", err))
	}
	return schema
}

// LoadCorpus reads all passage files under dir matching the doublestar
// glob pattern, validates each against the embedded passage schema, and
// returns them in sorted file order.
//
// File order is the corpus order: it is the deterministic final
// tie-break for retrieval, so it must be stable across rebuilds of the
// same corpus.
func LoadCorpus(dir, pattern string) ([]Passage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("corpus dir is required")
	}
	if pattern == "" {
		pattern = "**/*.json"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid corpus glob pattern: %s", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob corpus files: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no corpus files match %s under %s", pattern, dir)
	}
	sort.Strings(matches)

	passages := make([]Passage, 0, len(matches))
	seen := make(map[string]string, len(matches))
	for _, rel := range matches {
		p, err := loadPassageFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, fmt.Errorf("load passage %s: %w", rel, err)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate passage id %q in %s (first seen in %s)", p.ID, rel, prev)
		}
		seen[p.ID] = rel
		passages = append(passages, p)
	}

	return passages, nil
}

func loadPassageFile(path string) (Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Passage{}, fmt.Errorf("read file: %w", err)
	}

	jsonData, err := toJSON(data, path)
	if err != nil {
		return Passage{}, err
	}

	// Validate raw JSON before decoding into the typed struct so
	// unknown fields are rejected rather than silently dropped.
	var raw any
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		return Passage{}, fmt.Errorf("parse passage: %w", err)
	}
	if err := passageSchema.Validate(raw); err != nil {
		return Passage{}, fmt.Errorf("validate passage: %w", err)
	}

	var p Passage
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return Passage{}, fmt.Errorf("decode passage: %w", err)
	}
	return p, nil
}

// toJSON converts file bytes to JSON. YAML files are converted; JSON
// files pass through. Format is determined by extension, falling back
// to YAML (a superset of JSON) when unrecognized.
func toJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data, nil
	default:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		jsonData, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return nil, fmt.Errorf("convert yaml to json: %w", err)
		}
		return jsonData, nil
	}
}

// normalizeYAML converts map[any]any (yaml.v3 nested maps) into
// map[string]any so the result is JSON-marshalable.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return m
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}
