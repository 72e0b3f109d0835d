// Package document is the retrieval write path: appending text chunks with
// metadata, removing by source, and wiping the store. Every mutation triggers
// a full index rebuild and a synchronous whole-file save inside the store.
package document

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// Service handles document store mutations.
type Service struct {
	store  Store
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a document service.
func New(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// AddTexts appends one document per (text, metadata) pair, stamped with the
// current time. A nil or empty metadatas slice defaults every text to an
// empty map; mismatched lengths are zipped to the shorter side. Empty input
// is a no-op. Returns the number of documents added: zero signals the caller
// that nothing was stored, including on persistence failure (which is logged,
// not surfaced).
func (s *Service) AddTexts(_ context.Context, texts []string, metadatas []map[string]any) int {
	if len(texts) == 0 {
		s.logger.Warn("no texts to add to document store")
		return 0
	}

	n := len(texts)
	if len(metadatas) > 0 && len(metadatas) < n {
		n = len(metadatas)
	}

	now := s.clock()
	docs := make([]domain.Document, n)
	for i := 0; i < n; i++ {
		meta := map[string]any{}
		if len(metadatas) > 0 {
			meta = metadatas[i]
		}
		docs[i] = domain.Document{
			Text:     texts[i],
			Metadata: meta,
			AddedAt:  now,
		}
	}

	if err := s.store.Append(docs); err != nil {
		s.logger.Error("failed to add texts to document store",
			zap.Int("count", n), zap.Error(err))
		return 0
	}

	metrics.ChunksIngestedTotal.Add(float64(n))
	s.logger.Info("added texts to document store", zap.Int("count", n))
	return n
}

// RemoveBySource deletes every document whose source metadata equals name.
// Returns ErrSourceNotFound when nothing matched.
func (s *Service) RemoveBySource(_ context.Context, name string) (int, error) {
	removed, err := s.store.RemoveFunc(func(d domain.Document) bool {
		return d.Source() == name
	})
	if err != nil {
		return removed, err
	}
	if removed == 0 {
		return 0, domain.ErrSourceNotFound
	}

	s.logger.Info("removed documents by source",
		zap.String("source", name), zap.Int("removed", removed))
	return removed, nil
}

// Clear wipes all documents from the store.
func (s *Service) Clear(_ context.Context) error {
	if err := s.store.Clear(); err != nil {
		return err
	}
	s.logger.Info("cleared document store")
	return nil
}

// Count returns the number of stored document chunks.
func (s *Service) Count(_ context.Context) int {
	return s.store.Len()
}

// Sources returns chunk counts grouped by source name.
func (s *Service) Sources(_ context.Context) map[string]int {
	return s.store.Sources()
}
