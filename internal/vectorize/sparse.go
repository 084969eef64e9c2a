package vectorize

import (
	"context"
	"fmt"
	"math"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
)

type textAnalyzer interface {
	Analyze([]byte) analysis.TokenStream
}

// Sparse fits a TF-IDF model over the units plus the query on every call. Tokens come from
// bleve's standard analyzer: unicode word segmentation, lower-casing and English stop words.
type Sparse struct {
	analyzer textAnalyzer
}

// NewSparse creates a sparse vectorizer.
func NewSparse() (*Sparse, error) {
	a := bleve.NewIndexMapping().AnalyzerNamed(standard.Name)
	if a == nil {
		return nil, fmt.Errorf("bleve analyzer %q not registered", standard.Name)
	}
	return &Sparse{analyzer: a}, nil
}

// FitAndEmbed treats the query as one extra document while fitting, then returns its row
// separately from the unit rows.
func (s *Sparse) FitAndEmbed(ctx context.Context, units []models.Unit, query string) ([]vector.Vector, vector.Vector, error) {
	if len(units) == 0 {
		return nil, nil, models.ErrEmptyCorpus
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	counts := make([]map[string]int, 0, len(units)+1)
	for _, u := range units {
		counts = append(counts, s.termCounts(u.Text))
	}
	counts = append(counts, s.termCounts(query))

	df := make(map[string]int)
	for _, tc := range counts {
		for term := range tc {
			df[term]++
		}
	}
	n := float64(len(counts))
	idf := make(map[string]float64, len(df))
	for term, d := range df {
		idf[term] = math.Log((1+n)/(1+float64(d))) + 1
	}

	rows := make([]vector.Vector, len(counts))
	for i, tc := range counts {
		rows[i] = weigh(tc, idf)
	}
	return rows[:len(units)], rows[len(units)], nil
}

func (s *Sparse) termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range s.analyzer.Analyze([]byte(text)) {
		counts[string(tok.Term)]++
	}
	return counts
}

// weigh returns the L2-normalised tf*idf row for one document.
func weigh(counts map[string]int, idf map[string]float64) vector.Sparse {
	weights := make(map[string]float64, len(counts))
	var sum float64
	for term, c := range counts {
		w := float64(c) * idf[term]
		weights[term] = w
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for term := range weights {
			weights[term] /= norm
		}
	}
	return vector.NewSparse(weights)
}
