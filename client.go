package docdex

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/extract"
	"github.com/kailas-cloud/docdex/internal/repository/conversation"
	"github.com/kailas-cloud/docdex/internal/repository/docstore"
	"github.com/kailas-cloud/docdex/internal/repository/tracker"
	answeruc "github.com/kailas-cloud/docdex/internal/usecase/answer"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
)

// ErrSourceNotFound is returned by Remove when no chunk carries the source name.
var ErrSourceNotFound = domain.ErrSourceNotFound

// ChatModel generates an answer from a fully rendered prompt.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result is one retrieval hit.
type Result struct {
	Text     string
	Metadata map[string]any
	Score    float64
}

// Answer is the outcome of asking a question.
type Answer struct {
	Text    string
	Sources []string
}

// Client is the in-process docdex engine for programs that embed retrieval
// without running the HTTP server.
type Client struct {
	store     *docstore.Store
	memory    *conversation.Memory
	docSvc    *documentuc.Service
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
	answerSvc *answeruc.Service
}

// New creates a docdex Client backed by files under the configured data
// directory.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		chunkSize: extract.DefaultChunkSize,
		overlap:   extract.DefaultOverlap,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dataDir == "" {
		return nil, errors.New("docdex: data directory required (use WithDataDir)")
	}

	store := docstore.Open(filepath.Join(cfg.dataDir, "documents.json"), cfg.logger)
	processed := tracker.Open(filepath.Join(cfg.dataDir, "processed_files.json"), cfg.logger)
	memory := conversation.Open(filepath.Join(cfg.dataDir, "conversations.json"), cfg.logger)

	docSvc := documentuc.New(store, cfg.logger)
	searchSvc := searchuc.New(store, cfg.logger)
	extractor := extract.New().WithChunking(cfg.chunkSize, cfg.overlap)
	ingestSvc := ingestuc.New(extractor, processed, docSvc, cfg.logger)

	var chat answeruc.ChatModel = noChatModel{}
	if cfg.chat != nil {
		chat = cfg.chat
	}
	answerSvc := answeruc.New(searchSvc, chat, memory, cfg.logger)
	if cfg.topK > 0 {
		answerSvc = answerSvc.WithTopK(cfg.topK)
	}

	return &Client{
		store:     store,
		memory:    memory,
		docSvc:    docSvc,
		searchSvc: searchSvc,
		ingestSvc: ingestSvc,
		answerSvc: answerSvc,
	}, nil
}

// Add stores texts with their metadata and reindexes. metadatas may be nil.
// Returns the number of chunks added.
func (c *Client) Add(ctx context.Context, texts []string, metadatas []map[string]any) int {
	return c.docSvc.AddTexts(ctx, texts, metadatas)
}

// IngestFile chunks and stores a local file, deduplicated by content hash.
// Returns false with zero chunks when the file was already ingested.
func (c *Client) IngestFile(ctx context.Context, path string) (bool, int, error) {
	result, err := c.ingestSvc.ProcessFile(ctx, path, "", filepath.Base(path))
	if err != nil {
		return false, 0, err
	}
	return result.Processed, result.Chunks, nil
}

// Search returns the top-k chunks scored against query, best first. k <= 0
// uses the default of 5.
func (c *Client) Search(ctx context.Context, query string, k int) []Result {
	hits := c.searchSvc.Search(ctx, query, k)
	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			Text:     hit.Document.Text,
			Metadata: hit.Document.Metadata,
			Score:    hit.Score,
		}
	}
	return results
}

// Ask answers a question grounded in the stored documents, keeping
// conversation history under threadID. An empty threadID disables history.
func (c *Client) Ask(ctx context.Context, question, threadID string) Answer {
	resp := c.answerSvc.Answer(ctx, question, threadID)
	return Answer{Text: resp.Answer, Sources: resp.Sources}
}

// Remove deletes all chunks whose source metadata equals name. Returns
// ErrSourceNotFound when nothing matched.
func (c *Client) Remove(ctx context.Context, name string) (int, error) {
	removed, err := c.docSvc.RemoveBySource(ctx, name)
	if err != nil {
		return 0, err
	}
	c.ingestSvc.Forget(name)
	return removed, nil
}

// Clear removes every stored chunk.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.docSvc.Clear(ctx); err != nil {
		return err
	}
	c.ingestSvc.Reset()
	return nil
}

// Count returns the number of stored chunks.
func (c *Client) Count(ctx context.Context) int {
	return c.docSvc.Count(ctx)
}

// Sources returns chunk counts keyed by source name.
func (c *Client) Sources(ctx context.Context) map[string]int {
	return c.docSvc.Sources(ctx)
}

// Close releases the document store. Further mutations fail.
func (c *Client) Close() error {
	return c.store.Close()
}

// noChatModel stands in when no chat provider is configured.
type noChatModel struct{}

func (noChatModel) Complete(context.Context, string) (string, error) {
	return "", errors.New("docdex: chat model not configured (use WithChatModel)")
}
