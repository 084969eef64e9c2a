package config

import (
	"errors"
	"fmt"

	"github.com/hyperjump/docqa/internal/models"
)

// Validate reports every invalid setting at once, wrapped in models.ErrConfiguration.
// Providers are only checked when the pipeline configuration needs them.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port out of range: %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DatabasePath == "" {
			add("storage.database_path is required for sqlite")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			add("storage.postgres_dsn is required for postgres")
		}
	default:
		add("unknown storage.driver %q (supported: sqlite, postgres)", c.Storage.Driver)
	}

	switch c.Blob.Driver {
	case "disk":
		if c.Blob.Directory == "" {
			add("blob.directory is required for disk")
		}
	case "s3":
		if c.Blob.Bucket == "" {
			add("blob.bucket is required for s3")
		}
	default:
		add("unknown blob.driver %q (supported: disk, s3)", c.Blob.Driver)
	}

	p := c.Pipeline
	if !oneOf(p.Segmentation, "dense", "sparse") {
		add("unknown pipeline.segmentation %q", p.Segmentation)
	}
	if !oneOf(p.Vectorization, "dense", "sparse") {
		add("unknown pipeline.vectorization %q", p.Vectorization)
	}
	if !oneOf(p.Synthesis, "extractive", "generative") {
		add("unknown pipeline.synthesis %q", p.Synthesis)
	}
	if p.K < 1 {
		add("pipeline.k must be at least 1, got %d", p.K)
	}
	if p.Sentences < 1 {
		add("pipeline.sentences must be at least 1, got %d", p.Sentences)
	}
	if overlap := p.ChunkOverlapOrDefault(); p.ChunkSize <= 0 || overlap < 0 || overlap >= p.ChunkSize {
		add("pipeline.chunk_overlap must be in [0, chunk_size): size=%d overlap=%d", p.ChunkSize, overlap)
	}

	if p.Vectorization == "dense" {
		switch c.Embedding.Provider {
		case "openai":
			if c.Embedding.APIKey == "" {
				add("embedding.api_key is required for the openai provider")
			}
		case "onnx":
			if c.Embedding.ModelPath == "" {
				add("embedding.model_path is required for the onnx provider")
			}
		case "hash":
		default:
			add("unknown embedding.provider %q (supported: openai, onnx, hash)", c.Embedding.Provider)
		}
		if c.Embedding.Dimensions <= 0 {
			add("embedding.dimensions must be positive")
		}
	}

	if p.Synthesis == "generative" {
		switch c.Generation.Provider {
		case "openai":
			if c.Generation.APIKey == "" {
				add("generation.api_key is required for the openai provider")
			}
		case "bedrock":
			if c.Generation.Region == "" {
				add("generation.region is required for the bedrock provider")
			}
		default:
			add("unknown generation.provider %q (supported: openai, bedrock)", c.Generation.Provider)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", models.ErrConfiguration, errors.Join(errs...))
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
