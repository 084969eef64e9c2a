// Package storage keeps the registry that maps opaque document ids to uploaded files.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
)

// Registry records uploaded documents. Lookups of unknown ids return models.ErrNotFound.
// The registry owns its database handle; Close releases it.
type Registry interface {
	// Register stores doc, assigning an ID and CreatedAt when they are empty.
	Register(ctx context.Context, doc *models.Document) error
	Resolve(ctx context.Context, id string) (*models.Document, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]*models.Document, error)
	// ListSourced returns documents with a non-empty Source, newest first.
	ListSourced(ctx context.Context) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Open returns the registry selected by cfg.Driver.
func Open(cfg *config.StorageConfig, logger *zap.Logger) (Registry, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteRegistry(cfg.DatabasePath)
	case "postgres":
		return NewPostgresRegistry(cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", models.ErrConfiguration, cfg.Driver)
	}
}
