// Package llm provides generative model clients for answer synthesis. Every client pins the
// sampling temperature to zero.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Generator completes a prompt. Implementations are safe for concurrent use.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg *config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	logger = utils.OrNop(logger)
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		g = NewOpenAIGenerator(&OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case ProviderBedrock:
		g, err = NewBedrockGenerator(ctx, cfg.Region, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", models.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Generator ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return g, nil
}
