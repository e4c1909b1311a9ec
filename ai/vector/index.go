// Package vector provides the in-memory vector index used for catalog
// retrieval. The catalog holds tens to low hundreds of items, so the index
// is an exact brute-force cosine scan over L2-normalized vectors.
package vector

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Entry pairs an item identifier with its embedding vector.
type Entry struct {
	ID     string
	Vector []float32
}

// Result is a single search hit. Score is cosine similarity in [-1, 1].
type Result struct {
	ID    string
	Score float32
}

// Index is an immutable flat vector index. Built once from the full catalog,
// read-only during serving; rebuilt wholesale when the catalog changes.
// Concurrent Search calls are safe without locking.
type Index struct {
	dimension int
	ids       []string
	vectors   [][]float32 // L2-normalized, catalog insertion order
}

// Build constructs an index from catalog entries. All vectors must share the
// same dimension. Input vectors are copied and normalized; the caller's
// slices are not retained.
func Build(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, errors.New("cannot build index from zero entries")
	}

	dimension := len(entries[0].Vector)
	if dimension == 0 {
		return nil, errors.New("cannot build index from empty vectors")
	}

	idx := &Index{
		dimension: dimension,
		ids:       make([]string, len(entries)),
		vectors:   make([][]float32, len(entries)),
	}
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if len(entry.Vector) != dimension {
			return nil, errors.Errorf("vector dimension mismatch for %q: got %d, want %d",
				entry.ID, len(entry.Vector), dimension)
		}
		if _, ok := seen[entry.ID]; ok {
			return nil, errors.Errorf("duplicate entry id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		idx.ids[i] = entry.ID
		idx.vectors[i] = normalize(entry.Vector)
	}
	return idx, nil
}

// Search returns the min(k, Len) entries most similar to the query vector,
// ordered by descending cosine similarity. Ties are broken by catalog
// insertion order so results are deterministic.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if k < 1 {
		return nil, errors.Errorf("k must be >= 1, got %d", k)
	}
	if len(query) != idx.dimension {
		return nil, errors.Errorf("query dimension mismatch: got %d, want %d", len(query), idx.dimension)
	}

	normalized := normalize(query)
	results := make([]Result, len(idx.vectors))
	for i, vec := range idx.vectors {
		results[i] = Result{ID: idx.ids[i], Score: dot(vec, normalized)}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// Dimension returns the vector dimensionality of the index.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// IDs returns the indexed identifiers in insertion order.
func (idx *Index) IDs() []string {
	ids := make([]string, len(idx.ids))
	copy(ids, idx.ids)
	return ids
}

// normalize returns an L2-normalized copy of the vector. A zero vector is
// returned unchanged (its similarity to everything is 0).
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
