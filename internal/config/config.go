// Package config provides configuration loading and structs for the docqa server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Blob       BlobConfig       `yaml:"blob"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Cache      CacheConfig      `yaml:"cache"`
	Inbox      InboxConfig      `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	FrontendURL    string        `yaml:"frontend_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// StorageConfig selects the document registry.
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
	PostgresDSN  string `yaml:"postgres_dsn"`
}

// BlobConfig selects where uploaded bytes are kept.
type BlobConfig struct {
	Driver       string `yaml:"driver"`
	Directory    string `yaml:"directory"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// EmbeddingConfig holds dense embedding model settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	ModelPath  string        `yaml:"model_path"`
	VocabPath  string        `yaml:"vocab_path"`
	Dimensions int           `yaml:"dimensions"`
	MaxTokens  int           `yaml:"max_tokens"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VocabPathOrDefault returns the WordPiece vocabulary path, vocab.txt next to the model
// when unset.
func (e *EmbeddingConfig) VocabPathOrDefault() string {
	if e.VocabPath != "" {
		return e.VocabPath
	}
	return filepath.Join(filepath.Dir(e.ModelPath), "vocab.txt")
}

// GenerationConfig holds generative model settings.
type GenerationConfig struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Region    string        `yaml:"region"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PipelineConfig holds the answer pipeline strategy and windowing.
type PipelineConfig struct {
	Segmentation  string `yaml:"segmentation"`
	Vectorization string `yaml:"vectorization"`
	Synthesis     string `yaml:"synthesis"`
	K             int    `yaml:"k"`
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  *int   `yaml:"chunk_overlap"`
	Sentences     int    `yaml:"sentences"`
}

// ChunkOverlapOrDefault returns the configured overlap; defaults to 100 when unset.
func (p *PipelineConfig) ChunkOverlapOrDefault() int {
	if p.ChunkOverlap != nil {
		return *p.ChunkOverlap
	}
	return defaultChunkOverlap
}

// CacheConfig holds the extracted-text cache settings.
type CacheConfig struct {
	TextTTL time.Duration `yaml:"text_ttl"`
}

// InboxConfig holds directories whose PDFs are uploaded automatically.
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *InboxConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands ${VAR} references and paths, and
// applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Blob.Directory = expandPath(cfg.Blob.Directory, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Address returns host:port for the HTTP listener.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
