package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/hyperjump/docqa/internal/metrics"
	"github.com/hyperjump/docqa/internal/models"
)

const anthropicVersion = "bedrock-2023-05-31"

type claudeMessageRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// bedrockInvoker is the subset of *bedrockruntime.Client used here.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockGenerator completes prompts with an Anthropic Claude model on AWS Bedrock.
type BedrockGenerator struct {
	client    bedrockInvoker
	modelID   string
	maxTokens int
}

// NewBedrockGenerator loads the default AWS credential chain for region.
func NewBedrockGenerator(ctx context.Context, region, modelID string, maxTokens int) (*BedrockGenerator, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", models.ErrConfiguration, err)
	}
	return newBedrockGenerator(bedrockruntime.NewFromConfig(cfg), modelID, maxTokens), nil
}

func newBedrockGenerator(client bedrockInvoker, modelID string, maxTokens int) *BedrockGenerator {
	return &BedrockGenerator{client: client, modelID: modelID, maxTokens: maxTokens}
}

// Complete sends prompt as a single user message at temperature zero and joins the text
// blocks of the reply.
func (g *BedrockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(claudeMessageRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        g.maxTokens,
		Temperature:      0,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal claude request: %w", err)
	}

	start := time.Now()
	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	metrics.ObserveModelCall(metrics.KindGenerate, ProviderBedrock, start, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("invoke claude model: %v: %w", err, models.ErrModelUnavailable)
	}

	var resp claudeMessageResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("unmarshal bedrock response: %v: %w", err, models.ErrModelUnavailable)
	}
	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String(), nil
}
