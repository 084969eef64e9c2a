package synth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docqa/internal/models"
)

type echoGenerator struct{ prompts []string }

func (e *echoGenerator) Complete(_ context.Context, prompt string) (string, error) {
	e.prompts = append(e.prompts, prompt)
	return prompt, nil
}

type funcGenerator func(ctx context.Context, prompt string) (string, error)

func (f funcGenerator) Complete(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

func scored(texts ...string) []models.ScoredUnit {
	out := make([]models.ScoredUnit, len(texts))
	for i, t := range texts {
		out[i] = models.ScoredUnit{Unit: models.Unit{Text: t, Ordinal: i + 10}, Rank: i + 1}
	}
	return out
}

func TestFirstSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"fewer than n", "Paragraph two about dogs.", 3, "Paragraph two about dogs."},
		{"first n", "One. Two! Three? Four.", 3, "One. Two! Three?"},
		{"collapses whitespace", "  First   line\nwraps here.  Second.", 3, "First line wraps here. Second."},
		{"trailing fragment", "Complete. trailing words", 3, "Complete. trailing words"},
		{"punctuation only", "...", 3, ""},
		{"empty", "   ", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstSentences(tt.text, tt.n))
		})
	}
}

func TestSynthesize_extractive(t *testing.T) {
	s := NewSynthesizer(nil, 0, 0)
	ans, err := s.Synthesize(context.Background(), "q", scored("Paragraph two about dogs.", "Other unit."), models.Extractive)
	require.NoError(t, err)
	assert.Equal(t, "Paragraph two about dogs.", ans.Text)
	assert.Equal(t, models.Extractive, ans.Mode)
	assert.Equal(t, []int{10}, ans.Evidence)
}

func TestSynthesize_extractiveSentinel(t *testing.T) {
	ans, err := NewSynthesizer(nil, 3, 0).Synthesize(context.Background(), "q", scored("?!"), models.Extractive)
	require.NoError(t, err)
	assert.Equal(t, models.NoAnswer, ans.Text)
}

func TestSynthesize_generativePromptAssembly(t *testing.T) {
	gen := &echoGenerator{}
	s := NewSynthesizer(gen, 3, time.Second)
	question := "What do dogs do?"
	ans, err := s.Synthesize(context.Background(), question, scored("Dogs bark.", "Cats purr."), models.Generative)
	require.NoError(t, err)

	assert.Contains(t, ans.Text, question)
	assert.Contains(t, ans.Text, "Dogs bark. Cats purr.")
	assert.True(t, strings.HasPrefix(ans.Text, "Based on the following context, answer the question:\n\nContext:\n"))
	assert.Equal(t, "Based on the following context, answer the question:\n\nContext:\nDogs bark. Cats purr.\n\nQuestion:\nWhat do dogs do?", ans.Text)
	assert.Equal(t, models.Generative, ans.Mode)
	assert.Equal(t, []int{10, 11}, ans.Evidence)
	assert.Len(t, gen.prompts, 1)
}

func TestSynthesize_generativeTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	gen := funcGenerator(func(context.Context, string) (string, error) {
		<-release
		return "late", nil
	})
	_, err := NewSynthesizer(gen, 3, 20*time.Millisecond).Synthesize(context.Background(), "q", scored("a."), models.Generative)
	assert.ErrorIs(t, err, models.ErrGenerationTimeout)
}

func TestSynthesize_generativeFailure(t *testing.T) {
	gen := funcGenerator(func(context.Context, string) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	})
	_, err := NewSynthesizer(gen, 3, time.Second).Synthesize(context.Background(), "q", scored("a."), models.Generative)
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
}

func TestSynthesize_generativeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := funcGenerator(func(ctx context.Context, _ string) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := NewSynthesizer(gen, 3, time.Minute).Synthesize(ctx, "q", scored("a."), models.Generative)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesize_invalid(t *testing.T) {
	s := NewSynthesizer(nil, 3, 0)
	_, err := s.Synthesize(context.Background(), "q", scored("a."), models.Generative)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = s.Synthesize(context.Background(), "q", scored("a."), "summary")
	assert.ErrorIs(t, err, models.ErrConfiguration)
	_, err = s.Synthesize(context.Background(), "q", nil, models.Extractive)
	assert.ErrorIs(t, err, models.ErrEmptyCorpus)
}
