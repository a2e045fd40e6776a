package analyzer

import (
	"strings"
	"unicode"

	"github.com/elysia-ai/corrige/pkg/retrieval"
)

// segment is a span of the original text with its byte offsets, so
// findings can point back at the source.
type segment struct {
	Text  string
	Start int
	End   int
}

// paragraphs splits text on blank lines. Offsets cover the trimmed
// paragraph body.
func paragraphs(text string) []segment {
	var out []segment
	offset := 0
	for _, block := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			start := offset + strings.Index(block, trimmed)
			out = append(out, segment{Text: trimmed, Start: start, End: start + len(trimmed)})
		}
		offset += len(block) + len("\n\n")
	}
	return out
}

// sentences splits text on terminal punctuation (. ! ? …), keeping the
// terminator inside the sentence span.
func sentences(text string) []segment {
	var out []segment
	start := -1
	for i := 0; i < len(text); {
		r := text[i]
		size := 1
		terminal := false
		switch r {
		case '.', '!', '?':
			terminal = true
		default:
			if strings.HasPrefix(text[i:], "…") {
				terminal = true
				size = len("…")
			}
		}
		if start < 0 && !isSpaceByte(r) {
			start = i
		}
		if terminal && start >= 0 {
			out = append(out, segment{Text: text[start : i+size], Start: start, End: i + size})
			start = -1
		}
		i += size
	}
	if start >= 0 {
		trimmed := strings.TrimRight(text[start:], " \t\n\r")
		if trimmed != "" {
			out = append(out, segment{Text: trimmed, Start: start, End: start + len(trimmed)})
		}
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// tokenSpans tokenizes like the retrieval tokenizer but keeps the byte
// offsets of each token in the original text. Token text is lowercased,
// accents preserved.
func tokenSpans(text string) []segment {
	var out []segment
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, segment{Text: strings.ToLower(text[start:i]), Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, segment{Text: strings.ToLower(text[start:]), Start: start, End: len(text)})
	}
	return out
}

// words tokenizes with the retrieval tokenizer so both layers agree on
// what counts as a word.
func words(text string) []string {
	return retrieval.Tokenize(text)
}

// lexicalDiversity is the distinct/total word ratio, stopwords excluded.
func lexicalDiversity(ws []string) float64 {
	total := 0
	distinct := map[string]bool{}
	for _, w := range ws {
		if stopwords[w] {
			continue
		}
		total++
		distinct[w] = true
	}
	if total == 0 {
		return 0
	}
	return float64(len(distinct)) / float64(total)
}

// leadingConnective reports the relation and text of the connective a
// sentence starts with, preferring the longest match, or ("", "").
func leadingConnective(sentence string) (relation, connective string) {
	lower := strings.ToLower(strings.TrimSpace(sentence))
	for rel, list := range connectives {
		for _, c := range list {
			if lower == c || strings.HasPrefix(lower, c+" ") || strings.HasPrefix(lower, c+",") {
				if len(c) > len(connective) {
					relation, connective = rel, c
				}
			}
		}
	}
	return relation, connective
}

// countConnectives counts connective occurrences per relation in the
// lowercased text. Multi-word connectives are counted as substrings, so
// their inner words can also score as single-word connectives; the
// cohesion heuristic tolerates that overcount.
func countConnectives(text string) map[string]int {
	lower := strings.ToLower(text)
	counts := map[string]int{}
	for rel, list := range connectives {
		for _, c := range list {
			if len(words(c)) == 1 {
				// Single-word connectives are counted on word boundaries.
				for _, w := range words(lower) {
					if w == c {
						counts[rel]++
					}
				}
				continue
			}
			counts[rel] += strings.Count(lower, c)
		}
	}
	return counts
}
