package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/blob"
	"github.com/hyperjump/docqa/internal/models"
)

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return info.Size()
}

func TestDiskUsageBytes_registryAndBlobs(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docqa.db")
	reg, err := NewSQLiteRegistry(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	store, err := blob.NewDiskStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	pdf := []byte("%PDF-1.4 cats purr")
	if err := store.Put(ctx, "20240301080000_doc-1_cats.pdf", pdf); err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{ID: "doc-1", Name: "cats.pdf", Key: "20240301080000_doc-1_cats.pdf", CreatedAt: time.Now()}
	if err := reg.Register(ctx, doc); err != nil {
		t.Fatal(err)
	}

	var registry int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		registry += fileSize(t, dbPath+suffix)
	}
	if registry == 0 {
		t.Fatal("registry files should exist after a write")
	}

	got, err := DiskUsageBytes(dbPath, store.Root())
	if err != nil {
		t.Fatal(err)
	}
	if want := registry + int64(len(pdf)); got != want {
		t.Errorf("DiskUsageBytes = %d, want %d (registry %d + blobs %d)", got, want, registry, len(pdf))
	}

	blobsOnly, err := DiskUsageBytes("", store.Root())
	if err != nil {
		t.Fatal(err)
	}
	if blobsOnly != int64(len(pdf)) {
		t.Errorf("blob directory only: got %d, want %d", blobsOnly, len(pdf))
	}
}

func TestDiskUsageBytes_nestedBlobDirectories(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.pdf":           "abc",
		"2024/b.pdf":      "de",
		"2024/03/c.pdf":   "f",
		"2024/03/.tmp123": "ghij",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := DiskUsageBytes("", root)
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("got %d bytes, want 10", got)
	}
}

func TestDiskUsageBytes_missingPathsCountZero(t *testing.T) {
	dir := t.TempDir()
	got, err := DiskUsageBytes(filepath.Join(dir, "never.db"), filepath.Join(dir, "no-uploads"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
