// Package blob stores uploaded document bytes under opaque object keys.
package blob

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
)

// Store puts, gets and deletes objects. Get and Delete of a missing key return models.ErrNotFound.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "disk", "":
		return NewDiskStore(cfg.Directory)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown blob driver %q", models.ErrConfiguration, cfg.Driver)
	}
}
