package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

// Runs only when DOCQA_TEST_POSTGRES_DSN points at a disposable database.
func TestPostgresRegistry_CRUD(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_POSTGRES_DSN not set")
	}
	reg, err := NewPostgresRegistry(dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	ctx := context.Background()

	doc := &models.Document{Name: "pg.pdf", Key: "20240101000000_pg.pdf", Source: "/in/pg.pdf", Digest: "abc"}
	if err := reg.Register(ctx, doc); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Delete(context.Background(), doc.ID) })

	got, err := reg.Resolve(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "pg.pdf" || got.Key != doc.Key || got.Source != "/in/pg.pdf" || got.Digest != "abc" {
		t.Errorf("got %+v", got)
	}
	sourced, err := reg.ListSourced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, d := range sourced {
		found = found || d.ID == doc.ID
	}
	if !found {
		t.Error("sourced document missing from ListSourced")
	}
	list, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Error("expected at least one document")
	}
	if err := reg.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Resolve(ctx, doc.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
