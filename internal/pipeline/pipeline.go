// Package pipeline answers a question about one document's text: segment, vectorize, rank
// and synthesize. Nothing is kept between calls.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/metrics"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/segment"
	"github.com/hyperjump/docqa/internal/synth"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/hyperjump/docqa/internal/vectorize"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Config fixes the strategy of one Answer call.
type Config struct {
	SegmentationMode      segment.Mode
	VectorizationStrategy vectorize.Strategy
	SynthesisMode         models.SynthesisMode
	K                     int
	ChunkSize             int
	ChunkOverlap          int
	Sentences             int
	EmbedTimeout          time.Duration
	GenerateTimeout       time.Duration
}

// DefaultConfig returns the lexical, extractive configuration that needs no model.
func DefaultConfig() Config {
	return Config{
		SegmentationMode:      segment.Sparse,
		VectorizationStrategy: vectorize.StrategySparse,
		SynthesisMode:         models.Extractive,
		K:                     1,
		ChunkSize:             segment.DefaultChunkSize,
		ChunkOverlap:          segment.DefaultChunkOverlap,
		Sentences:             synth.DefaultSentences,
		EmbedTimeout:          30 * time.Second,
		GenerateTimeout:       60 * time.Second,
	}
}

// ConfigFrom builds a pipeline configuration from the application settings.
func ConfigFrom(cfg *config.Config) (Config, error) {
	seg, err := segment.ParseMode(cfg.Pipeline.Segmentation)
	if err != nil {
		return Config{}, err
	}
	strategy, err := vectorize.ParseStrategy(cfg.Pipeline.Vectorization)
	if err != nil {
		return Config{}, err
	}
	mode, err := models.ParseSynthesisMode(cfg.Pipeline.Synthesis)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		SegmentationMode:      seg,
		VectorizationStrategy: strategy,
		SynthesisMode:         mode,
		K:                     cfg.Pipeline.K,
		ChunkSize:             cfg.Pipeline.ChunkSize,
		ChunkOverlap:          cfg.Pipeline.ChunkOverlapOrDefault(),
		Sentences:             cfg.Pipeline.Sentences,
		EmbedTimeout:          cfg.Embedding.Timeout,
		GenerateTimeout:       cfg.Generation.Timeout,
	}
	return c, c.Validate()
}

// Validate checks the configuration without running anything.
func (c Config) Validate() error {
	if _, err := segment.ParseMode(string(c.SegmentationMode)); err != nil {
		return err
	}
	if _, err := vectorize.ParseStrategy(string(c.VectorizationStrategy)); err != nil {
		return err
	}
	if _, err := models.ParseSynthesisMode(string(c.SynthesisMode)); err != nil {
		return err
	}
	if _, err := segment.NewSegmenter(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.K < 0 || c.Sentences < 0 {
		return fmt.Errorf("%w: k and sentences must not be negative", models.ErrConfiguration)
	}
	return nil
}

// Pipeline runs Answer. It holds only reentrant model clients.
type Pipeline struct {
	embedder  embedding.Embedder
	generator llm.Generator
	indexKind string
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmbedder sets the embedder used by dense vectorization.
func WithEmbedder(e embedding.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithGenerator sets the generator used by generative synthesis.
func WithGenerator(g llm.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithIndexKind selects the vector index implementation.
func WithIndexKind(kind string) Option {
	return func(p *Pipeline) { p.indexKind = kind }
}

// WithLogger sets a logger for stage timings at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{indexKind: string(vector.KindFlat)}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Answer runs segment → vectorize → rank → synthesize over text. Failures are wrapped in a
// models.StageError naming the failing stage; no answer is returned with an error.
func (p *Pipeline) Answer(ctx context.Context, text, question string, cfg Config) (answer *models.Answer, err error) {
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		metrics.AnswersTotal.WithLabelValues(string(cfg.SynthesisMode), outcome).Inc()
	}()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var units []models.Unit
	err = p.stage(models.StageSegment, func() error {
		seg, err := segment.NewSegmenter(cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return err
		}
		units, err = seg.Segment(text, cfg.SegmentationMode)
		if err == nil && len(units) == 0 {
			err = models.ErrEmptyDocument
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var unitVecs []vector.Vector
	var queryVec vector.Vector
	err = p.stage(models.StageVectorize, func() error {
		vz, err := vectorize.New(cfg.VectorizationStrategy, p.embedder, cfg.EmbedTimeout)
		if err != nil {
			return err
		}
		unitVecs, queryVec, err = vz.FitAndEmbed(ctx, units, question)
		return err
	})
	if err != nil {
		return nil, err
	}

	var top []models.ScoredUnit
	err = p.stage(models.StageRank, func() error {
		idx, err := vector.NewIndex(p.indexKind)
		if err != nil {
			return err
		}
		if err := idx.Add(units, unitVecs); err != nil {
			return err
		}
		top, err = idx.Rank(queryVec, cfg.K)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(models.StageSynthesize, func() error {
		s := synth.NewSynthesizer(p.generator, cfg.Sentences, cfg.GenerateTimeout)
		a, err := s.Synthesize(ctx, question, top, cfg.SynthesisMode)
		answer = a
		return err
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Answered question",
		zap.Int("units", len(units)),
		zap.Int("top", len(top)),
		zap.Float64("best_score", top[0].Score),
		zap.String("mode", string(answer.Mode)))
	return answer, nil
}

// stage runs fn, records its duration and wraps its error with the stage name.
func (p *Pipeline) stage(name models.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(string(name)).Observe(elapsed.Seconds())
	if err != nil {
		p.logger.Debug("Pipeline stage failed", zap.String("stage", string(name)), zap.Duration("elapsed", elapsed), zap.Error(err))
		return models.WrapStage(name, err)
	}
	p.logger.Debug("Pipeline stage finished", zap.String("stage", string(name)), zap.Duration("elapsed", elapsed))
	return nil
}
