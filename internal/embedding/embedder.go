// Package embedding provides dense text embedders (OpenAI-compatible API, local ONNX and a
// deterministic hash embedder) and an LRU cache in front of them.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
)

// Embedder produces vector embeddings for text. Implementations are safe for concurrent use
// and deterministic for identical input within a session.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
	ProviderHash   = "hash"
)

// New builds the embedder selected by cfg.Provider, wrapped in a cache when cfg.CacheSize > 0.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		e = NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderONNX:
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.VocabPathOrDefault(), cfg.Dimensions, cfg.MaxTokens)
	case ProviderHash:
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}

// embedEach calls embed for every text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
