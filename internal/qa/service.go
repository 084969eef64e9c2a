// Package qa is the document service: it stores uploads and answers questions about them.
package qa

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/blob"
	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/pipeline"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/pkg/utils"
)

// DefaultMaxUploadBytes is the upload size limit.
const DefaultMaxUploadBytes = 10 << 20

// TextExtractor turns stored bytes into text.
type TextExtractor interface {
	ExtractBytes(content []byte, ext string) (string, error)
}

// Service ties the registry, the blob store and the answer pipeline together.
type Service struct {
	registry  storage.Registry
	blobs     blob.Store
	extractor TextExtractor
	pipeline  *pipeline.Pipeline
	config    pipeline.Config
	texts     *cache.Cache
	maxBytes  int64
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithTextTTL sets how long extracted text is cached per document. Zero disables the cache.
func WithTextTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl <= 0 {
			s.texts = nil
			return
		}
		s.texts = cache.New(ttl, 2*ttl)
	}
}

// WithClock sets the time source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service. cfg is the pipeline configuration used by Ask.
func NewService(registry storage.Registry, blobs blob.Store, extractor TextExtractor, p *pipeline.Pipeline, cfg pipeline.Config, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		blobs:     blobs,
		extractor: extractor,
		pipeline:  p,
		config:    cfg,
		texts:     cache.New(30*time.Minute, time.Hour),
		maxBytes:  DefaultMaxUploadBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// MaxUploadBytes returns the upload size limit.
func (s *Service) MaxUploadBytes() int64 { return s.maxBytes }

// Config returns the pipeline configuration used by Ask.
func (s *Service) Config() pipeline.Config { return s.config }

// Upload stores a PDF and registers it. If registration fails the stored object is removed.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	return s.upload(ctx, &models.Document{Name: fileid.BaseName(filename)}, content)
}

// UploadFrom uploads the file read from source and records source and the content digest
// with the document, so a later run can recognise the file.
func (s *Service) UploadFrom(ctx context.Context, source string, content []byte) (*models.Document, error) {
	return s.upload(ctx, &models.Document{
		Name:   fileid.BaseName(source),
		Source: source,
		Digest: fileid.Digest(content),
	}, content)
}

func (s *Service) upload(ctx context.Context, doc *models.Document, content []byte) (*models.Document, error) {
	if strings.ToLower(filepath.Ext(doc.Name)) != ".pdf" {
		return nil, fmt.Errorf("%w: only PDF files are allowed", models.ErrInvalidFileType)
	}
	if int64(len(content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", models.ErrFileTooLarge, len(content), s.maxBytes)
	}
	if doc.Digest == "" {
		doc.Digest = fileid.Digest(content)
	}

	doc.ID = uuid.NewString()
	doc.Key = fileid.ObjectKey(s.now(), doc.ID, doc.Name)
	if err := s.blobs.Put(ctx, doc.Key, content); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.registry.Register(ctx, doc); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), doc.Key); derr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("key", doc.Key), zap.Error(derr))
		}
		return nil, err
	}
	s.logger.Info("document uploaded",
		zap.String("id", doc.ID),
		zap.String("name", doc.Name),
		zap.String("source", doc.Source),
		zap.Int("bytes", len(content)))
	return doc, nil
}

// Ask answers question about the document id with the service configuration.
func (s *Service) Ask(ctx context.Context, id, question string) (*models.Answer, error) {
	return s.AskWith(ctx, id, question, s.config)
}

// AskWith answers question about the document id with cfg.
func (s *Service) AskWith(ctx context.Context, id, question string, cfg pipeline.Config) (*models.Answer, error) {
	text, err := s.Text(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Answer(ctx, text, question, cfg)
}

// Text returns the extracted text of a document, cached per id.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	if s.texts != nil {
		if v, ok := s.texts.Get(id); ok {
			return v.(string), nil
		}
	}
	doc, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return "", models.WrapStage(models.StageResolve, err)
	}
	content, err := s.blobs.Get(ctx, doc.Key)
	if err != nil {
		return "", models.WrapStage(models.StageFetch, err)
	}
	text, err := s.extractor.ExtractBytes(content, strings.ToLower(filepath.Ext(doc.Name)))
	if err != nil {
		return "", models.WrapStage(models.StageExtract, err)
	}
	if s.texts != nil {
		s.texts.SetDefault(id, text)
	}
	return text, nil
}

// List returns all registered documents, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Document, error) {
	return s.registry.List(ctx)
}

// Sourced returns the documents uploaded through UploadFrom, newest first.
func (s *Service) Sourced(ctx context.Context) ([]*models.Document, error) {
	return s.registry.ListSourced(ctx)
}

// Count returns the number of registered documents.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.registry.Count(ctx)
}

// Delete removes a document's object and registry entry. A missing object is logged and
// the registry entry is still removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.Key); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("delete object: %w", err)
		}
		s.logger.Warn("object already missing", zap.String("id", id), zap.String("key", doc.Key))
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	if s.texts != nil {
		s.texts.Delete(id)
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}
