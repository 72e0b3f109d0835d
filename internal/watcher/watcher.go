// Package watcher feeds files dropped into an inbox directory to the
// ingestion pipeline. The directory is scanned once at startup, then
// monitored with fsnotify; duplicate deliveries are absorbed downstream by
// content-hash deduplication.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/usecase/ingest"
)

// defaultSettle is how long to wait after a write event before ingesting,
// so files still being copied in are read whole.
const defaultSettle = 500 * time.Millisecond

// Ingestor processes one file into the document store.
type Ingestor interface {
	ProcessFile(ctx context.Context, path, fileID, name string) (ingest.Result, error)
}

// Watcher monitors an inbox directory for ingestable files.
type Watcher struct {
	dir       string
	ingestor  Ingestor
	supported func(path string) bool
	logger    *zap.Logger
	settle    time.Duration
}

// New creates a Watcher over dir. supported filters paths by extension.
func New(dir string, ingestor Ingestor, supported func(path string) bool, logger *zap.Logger) *Watcher {
	return &Watcher{
		dir:       dir,
		ingestor:  ingestor,
		supported: supported,
		logger:    logger,
		settle:    defaultSettle,
	}
}

// WithSettle overrides the post-write settle delay.
func (w *Watcher) WithSettle(d time.Duration) *Watcher {
	w.settle = d
	return w
}

// Run scans the inbox once, then blocks processing filesystem events until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.scan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.supported(event.Name) {
				continue
			}

			select {
			case <-time.After(w.settle):
			case <-ctx.Done():
				return nil
			}
			w.process(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// scan ingests every supported file already present in the inbox.
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", w.dir, err)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.supported(path) {
			continue
		}
		w.process(ctx, path)
	}
	return nil
}

func (w *Watcher) process(ctx context.Context, path string) {
	name := filepath.Base(path)
	result, err := w.ingestor.ProcessFile(ctx, path, "", name)
	if err != nil {
		w.logger.Warn("inbox ingestion failed",
			zap.String("path", path),
			zap.Error(err))
		return
	}
	if result.Processed {
		w.logger.Info("inbox file ingested",
			zap.String("name", name),
			zap.Int("chunks", result.Chunks))
	}
}
