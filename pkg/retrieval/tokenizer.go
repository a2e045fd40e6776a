package retrieval

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized terms.
//
// Normalization is case-folding only. Diacritics are deliberately NOT
// stripped: accents are semantically significant in the target language
// ("e" and "é" are different words), so "rapido" and "rápido" are
// distinct terms.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// TermCounts returns the term-frequency map of the given tokens.
func TermCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
