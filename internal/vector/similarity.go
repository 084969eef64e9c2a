package vector

import (
	"math"
	"sort"
)

// Vector is a dense or sparse vector.
type Vector interface {
	// Norm returns the L2 norm.
	Norm() float64
	// Dot returns the inner product with other, or 0 when the kinds or dimensions differ.
	Dot(other Vector) float64
	// Dims returns the dimensionality for dense vectors and the number of non-zero terms for
	// sparse ones.
	Dims() int
}

// Dense is a fixed-dimension embedding.
type Dense []float32

// Norm returns the L2 norm of d.
func (d Dense) Norm() float64 {
	var sum float64
	for _, v := range d {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of d and other.
func (d Dense) Dot(other Vector) float64 {
	o, ok := other.(Dense)
	if !ok || len(o) != len(d) {
		return 0
	}
	var dot float64
	for i := range d {
		dot += float64(d[i]) * float64(o[i])
	}
	return dot
}

// Dims returns len(d).
func (d Dense) Dims() int { return len(d) }

// Sparse is a term-weighted vector. Terms are sorted ascending and unique.
type Sparse struct {
	Terms   []string
	Weights []float64
}

// NewSparse builds a sparse vector from a term → weight map, dropping zero weights.
func NewSparse(weights map[string]float64) Sparse {
	terms := make([]string, 0, len(weights))
	for t, w := range weights {
		if w != 0 {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)
	s := Sparse{Terms: terms, Weights: make([]float64, len(terms))}
	for i, t := range terms {
		s.Weights[i] = weights[t]
	}
	return s
}

// Norm returns the L2 norm of s.
func (s Sparse) Norm() float64 {
	var sum float64
	for _, w := range s.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot merges the sorted term lists of s and other.
func (s Sparse) Dot(other Vector) float64 {
	o, ok := other.(Sparse)
	if !ok {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(s.Terms) && j < len(o.Terms) {
		switch {
		case s.Terms[i] == o.Terms[j]:
			dot += s.Weights[i] * o.Weights[j]
			i++
			j++
		case s.Terms[i] < o.Terms[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// Dims returns the number of non-zero terms.
func (s Sparse) Dims() int { return len(s.Terms) }

// Weight returns the weight of term, or 0.
func (s Sparse) Weight(term string) float64 {
	i := sort.SearchStrings(s.Terms, term)
	if i < len(s.Terms) && s.Terms[i] == term {
		return s.Weights[i]
	}
	return 0
}

// Cosine returns dot(a, b) / (|a| |b|) clamped to [-1, 1]. A zero-norm vector scores 0.
func Cosine(a, b Vector) float64 {
	if a == nil || b == nil {
		return 0
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	sim := a.Dot(b) / (na * nb)
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}
