// Package retrieval implements the TF-IDF similarity index over the
// reference corpus.
//
// The index is immutable once built. Rebuilds produce a new Index that
// is atomically swapped into the Holder; in-flight queries keep the
// version they started with. Querying is pure: for a fixed index and
// essay text, repeated queries return identical ordering and scores.
package retrieval

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// Passage is one reference document in the corpus.
type Passage struct {
	// ID is the stable passage identifier.
	ID string `json:"id"`

	// Title is an optional human-readable title.
	Title string `json:"title,omitempty"`

	// Text is the full passage text.
	Text string `json:"text"`

	// Quality is an optional grader-assigned level.
	Quality float64 `json:"quality,omitempty"`

	// Themes are optional tags.
	Themes []string `json:"themes,omitempty"`
}

// Hit is one ranked retrieval result.
type Hit struct {
	Passage Passage `json:"passage"`

	// Score is the cosine similarity in [0,1].
	Score float64 `json:"score"`
}

// Index is an immutable term-weighted similarity index.
type Index struct {
	// Version identifies the corpus build this index was computed from.
	Version string

	passages []Passage

	// idf holds smoothed inverse document frequency per term.
	idf map[string]float64

	// vectors holds the L2-normalized TF-IDF vector per passage,
	// parallel to passages.
	vectors []map[string]float64
}

// Build computes the index for the given corpus. Passage order is
// preserved and is the final tie-break for equally-similar results.
func Build(version string, passages []Passage) (*Index, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}

	docTerms := make([]map[string]int, len(passages))
	df := make(map[string]int)
	for i, p := range passages {
		counts := TermCounts(Tokenize(p.Text))
		if len(counts) == 0 {
			return nil, fmt.Errorf("passage %q has no terms", p.ID)
		}
		docTerms[i] = counts
		for term := range counts {
			df[term]++
		}
	}

	// Smoothed IDF: ln((1+N)/(1+df)) + 1. Terms present in every
	// passage still carry weight 1 rather than vanishing.
	n := float64(len(passages))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	vectors := make([]map[string]float64, len(passages))
	for i, counts := range docTerms {
		vectors[i] = normalize(weigh(counts, idf))
	}

	return &Index{
		Version:  version,
		passages: passages,
		idf:      idf,
		vectors:  vectors,
	}, nil
}

// Len returns the number of passages in the index.
func (ix *Index) Len() int {
	return len(ix.passages)
}

// Query ranks corpus passages by cosine similarity to the essay text
// and returns the top k. Ties break by shorter passage text first
// (denser relevance), then by corpus order.
//
// The query vector is computed under the corpus IDF scheme at query
// time only; corpus weights are never altered.
func (ix *Index) Query(text string, k int) []Hit {
	if k <= 0 {
		return nil
	}

	query := normalize(weigh(TermCounts(Tokenize(text)), ix.idf))
	if len(query) == 0 {
		return nil
	}

	type ranked struct {
		hit   Hit
		order int
	}
	scored := make([]ranked, 0, len(ix.passages))
	for i, p := range ix.passages {
		score := dot(query, ix.vectors[i])
		if score <= 0 {
			continue
		}
		scored = append(scored, ranked{hit: Hit{Passage: p, Score: score}, order: i})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].hit.Score != scored[b].hit.Score {
			return scored[a].hit.Score > scored[b].hit.Score
		}
		la, lb := len(scored[a].hit.Passage.Text), len(scored[b].hit.Passage.Text)
		if la != lb {
			return la < lb
		}
		return scored[a].order < scored[b].order
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	hits := make([]Hit, len(scored))
	for i, r := range scored {
		hits[i] = r.hit
	}
	return hits
}

func weigh(counts map[string]int, idf map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(counts))
	for term, tf := range counts {
		w, ok := idf[term]
		if !ok {
			// Out-of-corpus terms contribute nothing to similarity
			// against corpus passages.
			continue
		}
		weights[term] = float64(tf) * w
	}
	return weights
}

func normalize(vec map[string]float64) map[string]float64 {
	var sumSquares float64
	for _, w := range vec {
		sumSquares += w * w
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	for term, w := range vec {
		vec[term] = w / norm
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			sum += wa * wb
		}
	}
	return sum
}

// Holder publishes the current index with an atomic build/swap
// lifecycle. Readers load a consistent snapshot; old versions are
// garbage-collected once no in-flight query holds them.
type Holder struct {
	current atomic.Pointer[Index]
}

// Current returns the active index, or nil before the first build.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Swap atomically replaces the active index. In-flight queries continue
// against the prior version until they finish.
func (h *Holder) Swap(ix *Index) {
	h.current.Store(ix)
}
