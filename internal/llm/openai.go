package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/docqa/internal/metrics"
	"github.com/hyperjump/docqa/internal/models"
)

// OpenAIConfig holds the OpenAI-compatible chat settings.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIGenerator completes prompts with an OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIGenerator creates a chat completion generator.
func NewOpenAIGenerator(cfg *OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete sends prompt as a single user message and returns the first choice verbatim.
func (g *OpenAIGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// A literal zero is dropped by omitempty and the server default applies instead.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   g.maxTokens,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	metrics.ObserveModelCall(metrics.KindGenerate, ProviderOpenAI, start, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, models.ErrModelUnavailable)
		}
		return "", fmt.Errorf("chat request failed: %v: %w", err, models.ErrModelUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices: %w", models.ErrModelUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
