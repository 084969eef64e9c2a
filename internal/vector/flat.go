package vector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/docqa/internal/models"
)

// FlatIndex is an in-memory index using a brute-force cosine scan. It is built for one
// invocation and never persisted.
type FlatIndex struct {
	units []models.Unit
	vecs  []Vector
	dims  int
	mu    sync.RWMutex
}

// NewFlatIndex creates an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{dims: -1}
}

// Add appends units with their vectors. Dense vectors must share one dimensionality.
func (f *FlatIndex) Add(units []models.Unit, vecs []Vector) error {
	if len(units) != len(vecs) {
		return fmt.Errorf("units and vectors length mismatch: %d != %d", len(units), len(vecs))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range vecs {
		if v == nil {
			return fmt.Errorf("nil vector for unit %d", units[i].Ordinal)
		}
		if d, ok := v.(Dense); ok {
			if f.dims >= 0 && len(d) != f.dims {
				return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(d), f.dims)
			}
			f.dims = len(d)
		}
	}
	f.units = append(f.units, units...)
	f.vecs = append(f.vecs, vecs...)
	return nil
}

// Rank scores every unit against query and returns the top k, ordered by score descending
// then ordinal ascending. k <= 0 means 1; k larger than the index returns every unit.
func (f *FlatIndex) Rank(query Vector, k int) ([]models.ScoredUnit, error) {
	if query == nil {
		return nil, fmt.Errorf("nil query vector")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if d, ok := query.(Dense); ok && f.dims >= 0 && len(d) != f.dims {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(d), f.dims)
	}
	if len(f.units) == 0 {
		return nil, nil
	}
	scored := make([]models.ScoredUnit, len(f.units))
	for i, v := range f.vecs {
		scored[i] = models.ScoredUnit{Unit: f.units[i], Score: Cosine(v, query)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Unit.Ordinal < scored[j].Unit.Ordinal
	})
	if k <= 0 {
		k = 1
	}
	if k > len(scored) {
		k = len(scored)
	}
	out := scored[:k]
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Size returns the number of units in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.units)
}
