// Package vector provides the vector types, similarity and in-memory ranking used by the
// answer pipeline.
package vector

import "github.com/hyperjump/docqa/internal/models"

// Index holds unit vectors for one pipeline invocation and ranks them against a query.
type Index interface {
	// Add appends units with their vectors. units and vecs must have equal length.
	Add(units []models.Unit, vecs []Vector) error
	// Rank returns the top-k units by cosine similarity to query, best first.
	Rank(query Vector, k int) ([]models.ScoredUnit, error)
	Size() int
}
