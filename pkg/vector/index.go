// Package vector provides the in-memory passage index and its snapshot
// persistence boundary.
package vector

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
)

// DefaultTopK is the number of passages returned when a caller asks for k <= 0.
const DefaultTopK = 4

// Passage is a chunk of corpus text together with its embedding.
type Passage struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Metadata carries provenance such as the source document and page.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Vector is the embedding of Text.
	Vector []float32 `json:"vector"`
}

// Result is a passage paired with its similarity to a query.
type Result struct {
	Passage

	// Score is the cosine similarity (higher = more similar).
	Score float32
}

// Index is an immutable brute-force cosine index. Once built it is safe for
// any number of concurrent readers.
type Index struct {
	passages   []Passage
	norms      []float64
	dimensions int
}

// Build validates the passages and returns a new index over a private copy
// of them.
func Build(passages []Passage) (*Index, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no passages", ErrIndex)
	}

	dims := len(passages[0].Vector)
	if dims == 0 {
		return nil, fmt.Errorf("%w: passage 0 has an empty vector", ErrIndex)
	}

	idx := &Index{
		passages:   make([]Passage, len(passages)),
		norms:      make([]float64, len(passages)),
		dimensions: dims,
	}

	for i, p := range passages {
		if len(p.Vector) != dims {
			return nil, fmt.Errorf("%w: passage %d has %d dimensions, expected %d",
				ErrIndex, i, len(p.Vector), dims)
		}
		idx.passages[i] = clonePassage(p)
		idx.norms[i] = norm(p.Vector)
	}

	return idx, nil
}

// Search returns the k passages most similar to query in non-increasing
// score order. Ties keep insertion order. k <= 0 means DefaultTopK.
func (x *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrIndex, len(query), x.dimensions)
	}

	if k <= 0 {
		k = DefaultTopK
	}
	k = min(k, len(x.passages))

	qn := norm(query)
	results := make([]Result, len(x.passages))
	for i, p := range x.passages {
		results[i] = Result{
			Passage: p,
			Score:   cosine(query, p.Vector, qn, x.norms[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	out := results[:k]
	for i := range out {
		out[i].Passage = clonePassage(out[i].Passage)
	}
	return out, nil
}

// Len returns the number of passages in the index.
func (x *Index) Len() int {
	return len(x.passages)
}

// Dimensions returns the embedding dimensionality shared by every passage.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Passages returns a copy of the indexed passages in insertion order.
func (x *Index) Passages() []Passage {
	out := make([]Passage, len(x.passages))
	for i, p := range x.passages {
		out[i] = clonePassage(p)
	}
	return out
}

func clonePassage(p Passage) Passage {
	return Passage{
		Text:     p.Text,
		Metadata: maps.Clone(p.Metadata),
		Vector:   slices.Clone(p.Vector),
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a, b []float32, na, nb float64) float32 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (na * nb))
}
