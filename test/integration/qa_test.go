// Package integration exercises the document service against real storage and blob backends.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/blob"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/pipeline"
	"github.com/hyperjump/docqa/internal/qa"
	"github.com/hyperjump/docqa/internal/segment"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vectorize"
)

// onePagePDF builds a PDF whose single page shows text in Helvetica.
func onePagePDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestIntegration_UploadAskDelete(t *testing.T) {
	dir := t.TempDir()
	registry, err := storage.NewSQLiteRegistry(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()
	blobs, err := blob.NewDiskStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewHashEmbedder(64)
	defer embedder.Close()

	p := pipeline.New(pipeline.WithEmbedder(embedder))
	svc := qa.NewService(registry, blobs, extract.NewExtractor(), p, pipeline.DefaultConfig())
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "manual.pdf", onePagePDF("Hold the power button for ten seconds to reset the device."))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	answer, err := svc.Ask(ctx, doc.ID, "how do I reset the device")
	if err != nil {
		t.Fatalf("Ask sparse: %v", err)
	}
	if !strings.Contains(answer.Text, "power button") || answer.Mode != models.Extractive {
		t.Errorf("unexpected sparse answer %+v", answer)
	}

	dense := pipeline.DefaultConfig()
	dense.SegmentationMode = segment.Dense
	dense.VectorizationStrategy = vectorize.StrategyDense
	answer, err = svc.AskWith(ctx, doc.ID, "reset", dense)
	if err != nil {
		t.Fatalf("Ask dense: %v", err)
	}
	if len(answer.Evidence) != 1 || answer.Evidence[0] != 0 {
		t.Errorf("unexpected dense evidence %v", answer.Evidence)
	}

	docs, err := svc.List(ctx)
	if err != nil || len(docs) != 1 || docs[0].Name != "manual.pdf" {
		t.Fatalf("List = %v, %v", docs, err)
	}

	if err := svc.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Ask(ctx, doc.ID, "reset"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := blobs.Get(ctx, doc.Key); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected object removed, got %v", err)
	}
}
