package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docqa/internal/fileid"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// Uploader is the part of the document service the inbox drives.
type Uploader interface {
	// UploadFrom uploads content read from source and records source and digest.
	UploadFrom(ctx context.Context, source string, content []byte) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	// Sourced lists documents previously uploaded from a source path, newest first.
	Sourced(ctx context.Context) ([]*models.Document, error)
}

type inboxEntry struct {
	docID  string
	digest string
}

// Inbox uploads PDFs dropped into watched directories. Replacing a file re-uploads it and
// removing it deletes the document it produced. The path ledger is rebuilt from the
// registry on Start, so restarts do not upload unchanged files again.
type Inbox struct {
	*Watcher
	uploader Uploader
	timeout  time.Duration
	mu       sync.Mutex
	entries  map[string]inboxEntry // path -> uploaded document
	ready    chan struct{}
	logger   *zap.Logger
}

// NewInbox creates an inbox over roots. Call Start to begin watching.
func NewInbox(roots []string, recursive bool, uploader Uploader, logger *zap.Logger, opts ...Option) *Inbox {
	in := &Inbox{
		uploader: uploader,
		timeout:  time.Minute,
		entries:  make(map[string]inboxEntry),
		ready:    make(chan struct{}),
		logger:   utils.OrNop(logger),
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	in.Watcher = NewWatcher(roots, []string{".pdf"}, recursive, in.ingest, in.forget, opts...)
	return in
}

// Start restores the ledger, watches the roots and then catches up with files that were
// added, changed or removed while the inbox was not running.
func (in *Inbox) Start(ctx context.Context) error {
	if err := in.restore(ctx); err != nil {
		return err
	}
	if err := in.Watcher.Start(ctx); err != nil {
		return err
	}
	go func() {
		in.catchUp()
		close(in.ready)
	}()
	return nil
}

// Ready is closed once the catch-up after Start has finished.
func (in *Inbox) Ready() <-chan struct{} {
	return in.ready
}

// restore seeds the ledger from documents uploaded by earlier runs. Older documents from the
// same path are superseded by the newest one and deleted.
func (in *Inbox) restore(ctx context.Context) error {
	docs, err := in.uploader.Sourced(ctx)
	if err != nil {
		return fmt.Errorf("restore inbox ledger: %w", err)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, doc := range docs {
		path := filepath.Clean(doc.Source)
		if _, seen := in.entries[path]; seen {
			in.remove(ctx, path, doc.ID)
			continue
		}
		in.entries[path] = inboxEntry{docID: doc.ID, digest: doc.Digest}
	}
	in.logger.Debug("inbox: ledger restored", zap.Int("paths", len(in.entries)))
	return nil
}

// catchUp forgets tracked files that no longer exist and ingests what is under the roots.
func (in *Inbox) catchUp() {
	in.mu.Lock()
	paths := make([]string, 0, len(in.entries))
	for path := range in.entries {
		paths = append(paths, path)
	}
	in.mu.Unlock()
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			in.forget(path)
		}
	}
	in.SyncExistingFiles()
}

// Uploaded returns the document id produced from path, if any.
func (in *Inbox) Uploaded(path string) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	e, ok := in.entries[filepath.Clean(path)]
	return e.docID, ok
}

func (in *Inbox) ingest(path string) {
	path = filepath.Clean(path)
	content, err := os.ReadFile(path)
	if err != nil {
		in.logger.Warn("inbox: failed to read file", zap.String("path", path), zap.Error(err))
		return
	}
	digest := fileid.Digest(content)

	in.mu.Lock()
	defer in.mu.Unlock()
	prev, seen := in.entries[path]
	if seen && prev.digest == digest {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
	defer cancel()
	doc, err := in.uploader.UploadFrom(ctx, path, content)
	if err != nil {
		in.logger.Warn("inbox: upload failed", zap.String("path", path), zap.Error(err))
		return
	}
	if seen {
		in.remove(ctx, path, prev.docID)
	}
	in.entries[path] = inboxEntry{docID: doc.ID, digest: digest}
	in.logger.Info("inbox: uploaded", zap.String("path", path), zap.String("id", doc.ID))
}

func (in *Inbox) forget(path string) {
	path = filepath.Clean(path)
	in.mu.Lock()
	defer in.mu.Unlock()
	e, ok := in.entries[path]
	if !ok {
		return
	}
	delete(in.entries, path)
	ctx, cancel := context.WithTimeout(context.Background(), in.timeout)
	defer cancel()
	in.remove(ctx, path, e.docID)
}

func (in *Inbox) remove(ctx context.Context, path, id string) {
	if err := in.uploader.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		in.logger.Warn("inbox: delete failed", zap.String("path", path), zap.String("id", id), zap.Error(err))
		return
	}
	in.logger.Info("inbox: removed", zap.String("path", path), zap.String("id", id))
}
