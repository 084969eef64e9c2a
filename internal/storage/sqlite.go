package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docqa/internal/models"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		object_key TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		source_path TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	if err := addMissingColumns(db, map[string]string{
		"source_path": "TEXT NOT NULL DEFAULT ''",
		"digest":      "TEXT NOT NULL DEFAULT ''",
	}); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path)`)
	return err
}

// addMissingColumns upgrades a documents table created before the given columns existed.
func addMissingColumns(db *sql.DB, columns map[string]string) error {
	rows, err := db.Query(`PRAGMA table_info(documents)`)
	if err != nil {
		return err
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			_ = rows.Close()
			return err
		}
		existing[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for name, def := range columns {
		if existing[name] {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE documents ADD COLUMN %s %s`, name, def)); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
	}
	return nil
}

const documentColumns = `id, name, object_key, created_at, source_path, digest`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Key, &doc.CreatedAt, &doc.Source, &doc.Digest); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Register inserts a document.
func (s *SQLiteRegistry) Register(ctx context.Context, doc *models.Document) error {
	prepare(doc)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.Key, doc.CreatedAt, doc.Source, doc.Digest,
	)
	if err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}
	return nil
}

// Resolve returns a document by ID.
func (s *SQLiteRegistry) Resolve(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all documents, newest first.
func (s *SQLiteRegistry) List(ctx context.Context) ([]*models.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id`)
}

// ListSourced returns documents uploaded from a source path, newest first.
func (s *SQLiteRegistry) ListSourced(ctx context.Context) ([]*models.Document, error) {
	return s.query(ctx, `SELECT `+documentColumns+` FROM documents WHERE source_path <> ''
		ORDER BY created_at DESC, id`)
}

func (s *SQLiteRegistry) query(ctx context.Context, q string, args ...interface{}) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document by ID.
func (s *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Count returns the number of registered documents.
func (s *SQLiteRegistry) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}

// prepare fills the ID and creation time of a new document.
func prepare(doc *models.Document) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
}
