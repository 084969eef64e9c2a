package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/blob"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/pipeline"
	"github.com/hyperjump/docqa/internal/qa"
	"github.com/hyperjump/docqa/internal/storage"
)

// Components holds the wired application.
type Components struct {
	Registry       storage.Registry
	Blobs          blob.Store
	Embedder       embedding.Embedder
	Generator      llm.Generator
	Pipeline       *pipeline.Pipeline
	PipelineConfig pipeline.Config
	Service        *qa.Service
}

func (c *Components) Close() {
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// wantsEmbedder reports whether dense vectorization is configured.
func wantsEmbedder(cfg *config.Config) bool {
	return cfg.Pipeline.Vectorization == "dense"
}

// wantsGenerator reports whether generative synthesis is configured or can be requested
// per question.
func wantsGenerator(cfg *config.Config) bool {
	if cfg.Pipeline.Synthesis == "generative" {
		return true
	}
	switch cfg.Generation.Provider {
	case llm.ProviderOpenAI:
		return cfg.Generation.APIKey != ""
	case llm.ProviderBedrock:
		return cfg.Generation.Region != ""
	}
	return false
}

// initializePipeline builds the model clients and the pipeline. The returned components
// have no registry, blob store or service.
func initializePipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	pcfg, err := pipeline.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}
	c := &Components{PipelineConfig: pcfg}
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if wantsEmbedder(cfg) {
		c.Embedder, err = embedding.New(&cfg.Embedding, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		opts = append(opts, pipeline.WithEmbedder(c.Embedder))
	}
	if wantsGenerator(cfg) {
		c.Generator, err = llm.New(ctx, &cfg.Generation, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		opts = append(opts, pipeline.WithGenerator(c.Generator))
	}
	c.Pipeline = pipeline.New(opts...)
	return c, nil
}

// initializeComponents validates cfg and wires the full document service.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := initializePipeline(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Registry, err = storage.Open(&cfg.Storage, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	c.Blobs, err = blob.Open(ctx, &cfg.Blob)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	c.Service = qa.NewService(c.Registry, c.Blobs, extract.NewExtractor(), c.Pipeline, c.PipelineConfig,
		qa.WithLogger(logger),
		qa.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		qa.WithTextTTL(cfg.Cache.TextTTL),
	)
	logger.Info("components initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("blob", cfg.Blob.Driver),
		zap.String("segmentation", cfg.Pipeline.Segmentation),
		zap.String("vectorization", cfg.Pipeline.Vectorization),
		zap.String("synthesis", cfg.Pipeline.Synthesis))
	return c, nil
}
