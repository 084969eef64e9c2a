// Package vectorize turns units and a query into vectors in one consistent space.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
)

// Vectorizer embeds the units of one invocation together with its query. Vectors from
// different calls must never be compared.
type Vectorizer interface {
	FitAndEmbed(ctx context.Context, units []models.Unit, query string) ([]vector.Vector, vector.Vector, error)
}

// Strategy selects dense embeddings or sparse TF-IDF vectors.
type Strategy string

const (
	StrategyDense  Strategy = "dense"
	StrategySparse Strategy = "sparse"
)

// ParseStrategy validates a vectorization strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyDense, StrategySparse:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown vectorization strategy %q", models.ErrConfiguration, s)
	}
}

// New returns the vectorizer for strategy. Dense requires an embedder.
func New(strategy Strategy, embedder embedding.Embedder, timeout time.Duration) (Vectorizer, error) {
	switch strategy {
	case StrategyDense:
		if embedder == nil {
			return nil, fmt.Errorf("%w: dense vectorization needs an embedder", models.ErrConfiguration)
		}
		return NewDense(embedder, timeout), nil
	case StrategySparse:
		s, err := NewSparse()
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown vectorization strategy %q", models.ErrConfiguration, strategy)
	}
}

// modelError keeps cancellation, timeouts and already classified failures as they are and
// marks anything else as an unavailable model.
func modelError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, models.ErrRetrievalTimeout) || errors.Is(err, models.ErrModelUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
}
