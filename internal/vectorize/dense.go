package vectorize

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Dense embeds every unit and the query with one embedding model in a single batch.
type Dense struct {
	embedder embedding.Embedder
	timeout  time.Duration
}

// NewDense creates a dense vectorizer. timeout bounds the whole batch; 0 disables it.
func NewDense(e embedding.Embedder, timeout time.Duration) *Dense {
	return &Dense{embedder: e, timeout: timeout}
}

// FitAndEmbed embeds unit texts followed by the query.
func (d *Dense) FitAndEmbed(ctx context.Context, units []models.Unit, query string) ([]vector.Vector, vector.Vector, error) {
	if len(units) == 0 {
		return nil, nil, models.ErrEmptyCorpus
	}
	texts := make([]string, 0, len(units)+1)
	for _, u := range units {
		texts = append(texts, u.Text)
	}
	texts = append(texts, query)

	raw, err := utils.CallWithTimeout(ctx, d.timeout, models.ErrRetrievalTimeout,
		func(ctx context.Context) ([][]float32, error) {
			return d.embedder.EmbedBatch(ctx, texts)
		})
	if err != nil {
		return nil, nil, modelError(ctx, err)
	}
	if len(raw) != len(texts) {
		return nil, nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			models.ErrModelUnavailable, len(raw), len(texts))
	}

	dims := len(raw[0])
	vecs := make([]vector.Vector, len(raw))
	for i, r := range raw {
		if len(r) == 0 || len(r) != dims {
			return nil, nil, fmt.Errorf("%w: inconsistent embedding dimensions (%d and %d)",
				models.ErrModelUnavailable, dims, len(r))
		}
		vecs[i] = vector.Dense(r)
	}
	return vecs[:len(units)], vecs[len(units)], nil
}
