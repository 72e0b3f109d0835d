package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/usecase/ingest"
)

type mockIngestor struct {
	mu    sync.Mutex
	paths []string
}

func (m *mockIngestor) ProcessFile(_ context.Context, path, _, _ string) (ingest.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	return ingest.Result{Processed: true, Chunks: 1}, nil
}

func (m *mockIngestor) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

func isText(path string) bool {
	return strings.HasSuffix(path, ".txt")
}

func TestRunScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "skip.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	ingestor := &mockIngestor{}
	w := New(dir, ingestor, isText, zap.NewNop()).WithSettle(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return len(ingestor.seen()) == 2 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	seen := ingestor.seen()
	for _, p := range seen {
		if strings.HasSuffix(p, ".pdf") {
			t.Fatalf("unsupported file ingested: %s", p)
		}
	}
}

func TestRunPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	ingestor := &mockIngestor{}
	w := New(dir, ingestor, isText, zap.NewNop()).WithSettle(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("fresh content"), 0o600); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		for _, p := range ingestor.seen() {
			if strings.HasSuffix(p, "new.txt") {
				return true
			}
		}
		return false
	})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRunMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), &mockIngestor{}, isText, zap.NewNop())
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing inbox dir")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
