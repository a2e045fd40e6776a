package analyzer

import "regexp"

// The tables below are the Portuguese linguistic knowledge base shared
// by the analyzers: connectives grouped by rhetorical relation, common
// grammar-problem patterns, frequent missing-accent pairs, and the
// ideal essay-structure proportions.

// connectives maps a rhetorical relation to its common connectives.
// Multi-word connectives come first within each group so longer matches
// win when scanning.
var connectives = map[string][]string{
	"adição":       {"além disso", "bem como", "ademais", "outrossim", "também", "e"},
	"conclusão":    {"por conseguinte", "dessa forma", "portanto", "assim", "logo"},
	"contraste":    {"no entanto", "entretanto", "contudo", "todavia", "porém", "mas"},
	"causa":        {"visto que", "já que", "uma vez que", "porque", "pois"},
	"consequência": {"de modo que", "de forma que", "tanto que", "por isso"},
	"condição":     {"desde que", "contanto que", "a menos que", "caso", "se"},
	"finalidade":   {"a fim de que", "com o intuito de", "com o propósito de", "para que"},
	"tempo":        {"assim que", "logo que", "antes que", "depois que", "enquanto", "quando"},
	"explicação":   {"isto é", "ou seja", "em outras palavras", "a saber"},
}

// grammarRule is a pattern-based grammar check.
type grammarRule struct {
	kind     string
	pattern  *regexp.Regexp
	severity Severity
	message  string
}

var grammarRules = []grammarRule{
	{
		kind:     "concordância",
		pattern:  regexp.MustCompile(`(?i)\bos [a-zà-ú]+ção\b`),
		severity: SeverityError,
		message:  "concordância: substantivos terminados em -ção são femininos",
	},
	{
		kind:     "concordância",
		pattern:  regexp.MustCompile(`(?i)\bas [a-zà-ú]+mento\b`),
		severity: SeverityError,
		message:  "concordância: substantivos terminados em -mento são masculinos",
	},
	{
		kind:     "regência",
		pattern:  regexp.MustCompile(`(?i)\bassistir (o|os) `),
		severity: SeverityWarning,
		message:  "regência: o verbo assistir no sentido de ver exige a preposição \"a\"",
	},
	{
		kind:     "regência",
		pattern:  regexp.MustCompile(`(?i)\bvisar (o|a|os|as) `),
		severity: SeverityWarning,
		message:  "regência: o verbo visar no sentido de almejar exige a preposição \"a\"",
	},
	{
		kind:     "crase",
		pattern:  regexp.MustCompile(`(?i)\ba (a|as) `),
		severity: SeverityWarning,
		message:  "crase: fusão da preposição \"a\" com o artigo feminino exige acento grave",
	},
}

// accentPairs maps frequent unaccented misspellings to the accented
// form. Matching is whole-word and case-insensitive.
var accentPairs = map[string]string{
	"rapido":   "rápido",
	"nao":      "não",
	"tambem":   "também",
	"porem":    "porém",
	"voce":     "você",
	"ate":      "até",
	"apos":     "após",
	"ja":       "já",
	"so":       "só",
	"historia": "história",
	"pais":     "país",
	"numero":   "número",
	"politica": "política",
	"publico":  "público",
}

// structureIdeal holds the expected paragraph counts per essay section.
var structureIdeal = struct {
	introMin, introMax  int
	devMin, devMax      int
	conclMin, conclMax  int
	minParagraphs       int
	preferredParagraphs int
}{
	introMin: 1, introMax: 1,
	devMin: 2, devMax: 3,
	conclMin: 1, conclMax: 1,
	minParagraphs:       3,
	preferredParagraphs: 4,
}

// stopwords are high-frequency words excluded from repetition and
// richness measures.
var stopwords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "um": true, "uma": true,
	"de": true, "do": true, "da": true, "dos": true, "das": true,
	"em": true, "no": true, "na": true, "nos": true, "nas": true,
	"e": true, "que": true, "se": true, "por": true, "para": true,
	"com": true, "não": true, "é": true, "ao": true, "à": true,
}
