package config

import "time"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:3000"
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 2 * time.Minute
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/docqa/data/db/documents.db"
	}
	if cfg.Blob.Driver == "" {
		cfg.Blob.Driver = "disk"
	}
	if cfg.Blob.Directory == "" {
		cfg.Blob.Directory = "/usr/local/var/docqa/data/uploads"
	}
	if cfg.Blob.Region == "" {
		cfg.Blob.Region = "us-east-1"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/docqa/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == "openai" {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	if cfg.Generation.Model == "" {
		if cfg.Generation.Provider == "bedrock" {
			cfg.Generation.Model = "anthropic.claude-3-haiku-20240307-v1:0"
		} else {
			cfg.Generation.Model = "gpt-4o-mini"
		}
	}
	if cfg.Generation.Region == "" {
		cfg.Generation.Region = "us-east-1"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 512
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	if cfg.Pipeline.Segmentation == "" {
		cfg.Pipeline.Segmentation = "sparse"
	}
	if cfg.Pipeline.Vectorization == "" {
		cfg.Pipeline.Vectorization = cfg.Pipeline.Segmentation
	}
	if cfg.Pipeline.Synthesis == "" {
		cfg.Pipeline.Synthesis = "extractive"
	}
	if cfg.Pipeline.K == 0 {
		cfg.Pipeline.K = 1
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = defaultChunkSize
	}
	// Zero is a valid overlap, so only an unset value gets the default.
	if cfg.Pipeline.ChunkOverlap == nil {
		o := defaultChunkOverlap
		cfg.Pipeline.ChunkOverlap = &o
	}
	if cfg.Pipeline.Sentences == 0 {
		cfg.Pipeline.Sentences = 3
	}
	if cfg.Cache.TextTTL == 0 {
		cfg.Cache.TextTTL = 30 * time.Minute
	}
	if len(cfg.Inbox.Directories) > 0 && cfg.Inbox.Recursive == nil {
		t := true
		cfg.Inbox.Recursive = &t
	}
}
