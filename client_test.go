package docdex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type mockChat struct {
	reply string
	err   error
	calls int
}

func (m *mockChat) Complete(context.Context, string) (string, error) {
	m.calls++
	return m.reply, m.err
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithDataDir(t.TempDir())}, opts...)
	client, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_NoDataDir(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error when no data directory provided")
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	added := client.Add(ctx,
		[]string{"the cat sat on the mat", "dogs chase squirrels in the park"},
		[]map[string]any{{"source": "a.txt"}, {"source": "b.txt"}},
	)
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	results := client.Search(ctx, "where did the cat sit?", 5)
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Metadata["source"] != "a.txt" || results[0].Score <= 0 {
		t.Fatalf("top hit = %+v", results[0])
	}
}

func TestSearchPersistsAcrossClients(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := New(WithDataDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	first.Add(ctx, []string{"golang concurrency patterns", "cooking pasta with tomatoes"}, nil)
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := New(WithDataDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = second.Close() }()

	if second.Count(ctx) != 2 {
		t.Fatalf("count after reopen = %d, want 2", second.Count(ctx))
	}
	if hits := second.Search(ctx, "concurrency patterns", 5); len(hits) != 1 {
		t.Fatalf("hits after reopen = %+v", hits)
	}
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("deploys happen every tuesday"), 0o600); err != nil {
		t.Fatal(err)
	}

	processed, chunks, err := client.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("IngestFile failed: %v", err)
	}
	if !processed || chunks != 1 {
		t.Fatalf("processed=%v chunks=%d", processed, chunks)
	}

	// Identical content is deduplicated.
	processed, chunks, err = client.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("second IngestFile failed: %v", err)
	}
	if processed || chunks != 0 {
		t.Fatalf("second ingest processed=%v chunks=%d", processed, chunks)
	}

	if sources := client.Sources(ctx); sources["notes.txt"] != 1 {
		t.Fatalf("sources = %v", sources)
	}

	// Removing the source makes the same file ingestable again.
	if _, err := client.Remove(ctx, "notes.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	processed, chunks, err = client.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("re-ingest failed: %v", err)
	}
	if !processed || chunks != 1 {
		t.Fatalf("re-ingest processed=%v chunks=%d", processed, chunks)
	}
}

func TestAsk(t *testing.T) {
	ctx := context.Background()
	chat := &mockChat{reply: "Deploys happen every Tuesday."}
	client := newClient(t, WithChatModel(chat), WithTopK(3), WithLogger(zap.NewNop()))

	client.Add(ctx,
		[]string{"deploys happen every tuesday", "lunch menu rotates weekly"},
		[]map[string]any{{"source": "ops.md"}, {"source": "cafeteria.md"}})

	answer := client.Ask(ctx, "when do deploys happen?", "thread-1")
	if answer.Text != "Deploys happen every Tuesday." {
		t.Fatalf("answer = %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "ops.md" {
		t.Fatalf("sources = %v", answer.Sources)
	}
	if chat.calls != 1 {
		t.Fatalf("chat calls = %d", chat.calls)
	}
}

func TestAsk_NoChatModel(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	client.Add(ctx,
		[]string{"some indexed content", "unrelated filler text"},
		[]map[string]any{{"source": "notes.txt"}, {"source": "other.txt"}})

	answer := client.Ask(ctx, "indexed content?", "")
	// The fallback is apologetic text, not a chat reply.
	if answer.Text == "" {
		t.Fatal("expected a fallback answer")
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "notes.txt" {
		t.Fatalf("sources = %v", answer.Sources)
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	client.Add(ctx,
		[]string{"alpha", "beta", "gamma"},
		[]map[string]any{{"source": "a.txt"}, {"source": "a.txt"}, {"source": "b.txt"}},
	)

	removed, err := client.Remove(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if _, err := client.Remove(ctx, "missing.txt"); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}

	if err := client.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if client.Count(ctx) != 0 {
		t.Fatalf("count after clear = %d", client.Count(ctx))
	}
}

func TestNoChatModelError(t *testing.T) {
	_, err := noChatModel{}.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error from noChatModel")
	}
}
