// Package synth turns ranked units into an answer, either by quoting the best unit or by
// prompting a generative model with every retrieved unit.
package synth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/segment"
	"github.com/hyperjump/docqa/pkg/utils"
)

// DefaultSentences is the number of sentences quoted by extractive synthesis.
const DefaultSentences = 3

const promptTemplate = "Based on the following context, answer the question:\n\nContext:\n%s\n\nQuestion:\n%s"

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Synthesizer builds answers. The generator is only needed for generative mode.
type Synthesizer struct {
	generator llm.Generator
	sentences int
	timeout   time.Duration
}

// NewSynthesizer creates a synthesizer quoting up to sentences sentences (DefaultSentences
// when <= 0). timeout bounds each generation call; 0 disables it.
func NewSynthesizer(generator llm.Generator, sentences int, timeout time.Duration) *Synthesizer {
	if sentences <= 0 {
		sentences = DefaultSentences
	}
	return &Synthesizer{generator: generator, sentences: sentences, timeout: timeout}
}

// Synthesize answers question from top, which is ordered best first.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, top []models.ScoredUnit, mode models.SynthesisMode) (*models.Answer, error) {
	if len(top) == 0 {
		return nil, models.ErrEmptyCorpus
	}
	switch mode {
	case models.Extractive:
		return s.extractive(top[0]), nil
	case models.Generative:
		return s.generative(ctx, question, top)
	default:
		return nil, fmt.Errorf("%w: unknown synthesis mode %q", models.ErrConfiguration, mode)
	}
}

func (s *Synthesizer) extractive(best models.ScoredUnit) *models.Answer {
	text := FirstSentences(best.Unit.Text, s.sentences)
	if text == "" {
		text = models.NoAnswer
	}
	return &models.Answer{
		Text:     text,
		Mode:     models.Extractive,
		Evidence: []int{best.Unit.Ordinal},
	}
}

func (s *Synthesizer) generative(ctx context.Context, question string, top []models.ScoredUnit) (*models.Answer, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("%w: generative synthesis needs a generator", models.ErrConfiguration)
	}
	texts := make([]string, len(top))
	evidence := make([]int, len(top))
	for i, su := range top {
		texts[i] = su.Unit.Text
		evidence[i] = su.Unit.Ordinal
	}
	prompt := BuildPrompt(question, strings.Join(texts, " "))

	completion, err := utils.CallWithTimeout(ctx, s.timeout, models.ErrGenerationTimeout,
		func(ctx context.Context) (string, error) {
			return s.generator.Complete(ctx, prompt)
		})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, models.ErrGenerationTimeout), errors.Is(err, models.ErrModelUnavailable):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
		}
	}
	return &models.Answer{Text: completion, Mode: models.Generative, Evidence: evidence}, nil
}

// BuildPrompt fills the fixed question-answering template.
func BuildPrompt(question, passages string) string {
	return fmt.Sprintf(promptTemplate, passages, question)
}

// FirstSentences returns up to n sentences of text, each trimmed and whitespace-collapsed,
// joined by single spaces. A sentence ends at '.', '!' or '?'; trailing text without a
// terminator counts as a sentence.
func FirstSentences(text string, n int) string {
	var out []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		if len(out) == n {
			break
		}
		if sent := segment.Collapse(m); sent != "" && strings.Trim(sent, ".!? ") != "" {
			out = append(out, sent)
		}
	}
	return strings.Join(out, " ")
}
