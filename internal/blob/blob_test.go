package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/models"
)

func TestDiskStore_RoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "20240101000000_a.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "20240101000000_a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "%PDF-1.4" {
		t.Errorf("got %q", got)
	}
	if err := store.Delete(ctx, "20240101000000_a.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "20240101000000_a.pdf"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "20240101000000_a.pdf"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDiskStore_RejectsPathKeys(t *testing.T) {
	store, _ := NewDiskStore(t.TempDir())
	for _, key := range []string{"", "..", "../escape", "a/b"} {
		if err := store.Put(context.Background(), key, nil); err == nil {
			t.Errorf("key %q: expected error", key)
		}
	}
}

func TestOpen_unknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), &config.BlobConfig{Driver: "ftp"}); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
	if _, err := Open(context.Background(), &config.BlobConfig{Driver: "s3"}); !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("missing bucket: expected ErrConfiguration, got %v", err)
	}
}

// fakeS3 keeps objects in memory and reports missing keys the way S3 does.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := newS3Store(fake, "docs")
	ctx := context.Background()

	if err := store.Put(ctx, "k.pdf", []byte("bytes")); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["docs/k.pdf"]; !ok {
		t.Fatal("object not written to bucket")
	}
	got, err := store.Get(ctx, "k.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bytes" {
		t.Errorf("got %q", got)
	}
	if err := store.Delete(ctx, "k.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "k.pdf"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "k.pdf"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}
