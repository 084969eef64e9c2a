package qa

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/blob"
	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/pipeline"
	"github.com/hyperjump/docqa/internal/storage"
)

const catsAndDogs = "Paragraph one about cats.\n\nParagraph two about dogs."

// rawExtractor returns the stored bytes as text and counts calls.
type rawExtractor struct{ calls atomic.Int32 }

func (r *rawExtractor) ExtractBytes(content []byte, ext string) (string, error) {
	r.calls.Add(1)
	if ext != ".pdf" {
		return "", errors.New("unexpected extension " + ext)
	}
	return string(content), nil
}

// failingRegistry rejects every registration.
type failingRegistry struct{ storage.Registry }

func (failingRegistry) Register(context.Context, *models.Document) error {
	return errors.New("disk full")
}

type fixture struct {
	svc       *Service
	registry  *storage.SQLiteRegistry
	blobs     *blob.DiskStore
	extractor *rawExtractor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	reg, err := storage.NewSQLiteRegistry(filepath.Join(dir, "docqa.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	blobs, err := blob.NewDiskStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	ex := &rawExtractor{}
	clock := func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	opts = append([]Option{WithClock(clock)}, opts...)
	svc := NewService(reg, blobs, ex, pipeline.New(), pipeline.DefaultConfig(), opts...)
	return &fixture{svc: svc, registry: reg, blobs: blobs, extractor: ex}
}

func TestUpload_thenAsk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, "pets.pdf", []byte(catsAndDogs))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" || doc.Name != "pets.pdf" {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Key != "20240301080000_"+doc.ID+"_pets.pdf" {
		t.Errorf("key = %q", doc.Key)
	}
	if doc.Digest != fileid.Digest([]byte(catsAndDogs)) || doc.Source != "" {
		t.Errorf("digest = %q source = %q", doc.Digest, doc.Source)
	}

	ans, err := f.svc.Ask(ctx, doc.ID, "Tell me about dogs")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "Paragraph two about dogs." {
		t.Errorf("answer = %q", ans.Text)
	}
	if len(ans.Evidence) != 1 || ans.Evidence[0] != 1 {
		t.Errorf("evidence = %v", ans.Evidence)
	}
}

func TestUpload_rejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"notes.txt", "archive.pdf.zip", "noext"} {
		if _, err := f.svc.Upload(context.Background(), name, []byte("x")); !errors.Is(err, models.ErrInvalidFileType) {
			t.Errorf("%s: expected ErrInvalidFileType, got %v", name, err)
		}
	}
	if _, err := f.svc.Upload(context.Background(), "UPPER.PDF", []byte("x")); err != nil {
		t.Errorf("upper-case extension should be accepted: %v", err)
	}
}

func TestUpload_tooLarge(t *testing.T) {
	f := newFixture(t, WithMaxUploadBytes(8))
	_, err := f.svc.Upload(context.Background(), "big.pdf", []byte("123456789"))
	if !errors.Is(err, models.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := f.svc.Upload(context.Background(), "ok.pdf", []byte("12345678")); err != nil {
		t.Errorf("upload at the limit should succeed: %v", err)
	}
}

func TestUpload_registerFailureRemovesObject(t *testing.T) {
	f := newFixture(t)
	svc := NewService(failingRegistry{f.registry}, f.blobs, f.extractor, pipeline.New(), pipeline.DefaultConfig(),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }))
	if _, err := svc.Upload(context.Background(), "a.pdf", []byte("data")); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(f.blobs.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("orphaned object should be removed, found %d objects", len(entries))
	}
}

func TestUpload_sameNameSameSecondKeepsBothDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Upload(ctx, "report.pdf", []byte("Version one about cats."))
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Upload(ctx, "report.pdf", []byte("Version two about dogs."))
	if err != nil {
		t.Fatal(err)
	}
	if first.Key == second.Key {
		t.Fatalf("both uploads share key %q", first.Key)
	}

	ans, err := f.svc.Ask(ctx, first.ID, "cats")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "Version one about cats." {
		t.Errorf("first document answered %q", ans.Text)
	}

	if err := f.svc.Delete(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	ans, err = f.svc.Ask(ctx, second.ID, "dogs")
	if err != nil {
		t.Fatalf("second document should survive deleting the first: %v", err)
	}
	if ans.Text != "Version two about dogs." {
		t.Errorf("second document answered %q", ans.Text)
	}
}

func TestUploadFrom_recordsSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.UploadFrom(ctx, "/srv/inbox/a/report.pdf", []byte(catsAndDogs))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "report.pdf" {
		t.Errorf("name = %q", doc.Name)
	}
	got, err := f.registry.Resolve(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "/srv/inbox/a/report.pdf" || got.Digest != fileid.Digest([]byte(catsAndDogs)) {
		t.Errorf("stored source = %q digest = %q", got.Source, got.Digest)
	}
	if _, err := f.svc.UploadFrom(ctx, "/srv/inbox/notes.txt", []byte("x")); !errors.Is(err, models.ErrInvalidFileType) {
		t.Errorf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestAsk_unknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ask(context.Background(), "missing", "anything")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if models.StageOf(err) != models.StageResolve {
		t.Errorf("stage = %q, want resolve", models.StageOf(err))
	}
}

func TestAsk_missingObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Upload(ctx, "gone.pdf", []byte(catsAndDogs))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.blobs.Delete(ctx, doc.Key); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Ask(ctx, doc.ID, "dogs")
	if models.StageOf(err) != models.StageFetch || !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected fetch-stage ErrNotFound, got %v", err)
	}
}

func TestAsk_emptyDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Upload(ctx, "blank.pdf", []byte("   \n\n  "))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Ask(ctx, doc.ID, "anything"); !errors.Is(err, models.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestAsk_cachesExtractedText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, _ := f.svc.Upload(ctx, "pets.pdf", []byte(catsAndDogs))
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Ask(ctx, doc.ID, "cats"); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.extractor.calls.Load(); n != 1 {
		t.Errorf("extractor called %d times, want 1", n)
	}
}

func TestAsk_textCacheDisabled(t *testing.T) {
	f := newFixture(t, WithTextTTL(0))
	ctx := context.Background()
	doc, _ := f.svc.Upload(ctx, "pets.pdf", []byte(catsAndDogs))
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Ask(ctx, doc.ID, "cats"); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.extractor.calls.Load(); n != 2 {
		t.Errorf("extractor called %d times, want 2", n)
	}
}

func TestAskWith_overridesConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, _ := f.svc.Upload(ctx, "pets.pdf", []byte(catsAndDogs))
	cfg := f.svc.Config()
	cfg.K = 2
	cfg.SynthesisMode = models.Generative
	// No generator is configured.
	if _, err := f.svc.AskWith(ctx, doc.ID, "dogs", cfg); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	doc, _ := f.svc.Upload(ctx, "pets.pdf", []byte(catsAndDogs))
	if _, err := f.svc.Ask(ctx, doc.ID, "cats"); err != nil {
		t.Fatal(err)
	}
	list, _ = f.svc.List(ctx)
	if len(list) != 1 || list[0].ID != doc.ID {
		t.Fatalf("unexpected list %+v", list)
	}
	if n, err := f.svc.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count = %d, %v", n, err)
	}

	if err := f.svc.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.blobs.Get(ctx, doc.Key); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("object should be deleted, got %v", err)
	}
	// The cached text must not outlive the document.
	if _, err := f.svc.Ask(ctx, doc.ID, "cats"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, doc.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
