package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// documentRecord is the GORM row for a registered document.
type documentRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"not null"`
	ObjectKey string    `gorm:"column:object_key;not null"`
	CreatedAt time.Time `gorm:"index"`
	Source    string    `gorm:"column:source_path;not null;default:'';index"`
	Digest    string    `gorm:"not null;default:''"`
}

func (documentRecord) TableName() string { return "documents" }

func (r *documentRecord) toModel() *models.Document {
	return &models.Document{
		ID:        r.ID,
		Name:      r.Name,
		Key:       r.ObjectKey,
		CreatedAt: r.CreatedAt,
		Source:    r.Source,
		Digest:    r.Digest,
	}
}

// PostgresRegistry implements Registry on PostgreSQL through GORM.
type PostgresRegistry struct {
	db *gorm.DB
}

// NewPostgresRegistry connects to dsn and migrates the documents table.
func NewPostgresRegistry(dsn string, logger *zap.Logger) (*PostgresRegistry, error) {
	logger = utils.OrNop(logger)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&documentRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &PostgresRegistry{db: db}, nil
}

// Register inserts a document.
func (p *PostgresRegistry) Register(ctx context.Context, doc *models.Document) error {
	prepare(doc)
	rec := documentRecord{
		ID:        doc.ID,
		Name:      doc.Name,
		ObjectKey: doc.Key,
		CreatedAt: doc.CreatedAt,
		Source:    doc.Source,
		Digest:    doc.Digest,
	}
	if err := p.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}
	return nil
}

// Resolve returns a document by ID.
func (p *PostgresRegistry) Resolve(ctx context.Context, id string) (*models.Document, error) {
	var rec documentRecord
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

// List returns all documents, newest first.
func (p *PostgresRegistry) List(ctx context.Context) ([]*models.Document, error) {
	return p.find(p.db.WithContext(ctx))
}

// ListSourced returns documents uploaded from a source path, newest first.
func (p *PostgresRegistry) ListSourced(ctx context.Context) ([]*models.Document, error) {
	return p.find(p.db.WithContext(ctx).Where("source_path <> ''"))
}

func (p *PostgresRegistry) find(tx *gorm.DB) ([]*models.Document, error) {
	var recs []documentRecord
	if err := tx.Order("created_at DESC, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	docs := make([]*models.Document, len(recs))
	for i := range recs {
		docs[i] = recs[i].toModel()
	}
	return docs, nil
}

// Delete removes a document by ID.
func (p *PostgresRegistry) Delete(ctx context.Context, id string) error {
	res := p.db.WithContext(ctx).Where("id = ?", id).Delete(&documentRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Count returns the number of registered documents.
func (p *PostgresRegistry) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&documentRecord{}).Count(&n).Error
	return n, err
}

// Close releases the connection pool.
func (p *PostgresRegistry) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
