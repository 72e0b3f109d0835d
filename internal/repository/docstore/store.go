// Package docstore is the persisted, ordered collection of ingested text
// passages together with its derived inverted index. The two are guarded as a
// single unit: every mutation rebuilds the index in full before the store is
// readable again, so no stale or partial index state is ever queryable.
package docstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// Store holds the ordered document sequence and its inverted index.
// Document identity is position in the sequence; positions are the
// identifiers recorded in posting lists, so insertion order is stable
// across save/load cycles. The index is rebuilt from the documents on
// every mutation and never persisted.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	docs   []domain.Document
	inv    index.Inverted
	closed bool
}

// Open loads the store from path. A missing file is an empty store; an
// unreadable or corrupt file is logged and treated as empty, self-healing on
// the next successful save.
func Open(path string, logger *zap.Logger) *Store {
	s := &Store{path: path, logger: logger}

	docs, err := loadFile(path)
	if err != nil {
		logger.Warn("failed to load document store, starting empty",
			zap.String("path", path), zap.Error(err))
		docs = nil
	}

	s.docs = docs
	s.inv = index.Build(texts(docs))
	metrics.DocumentsStored.Set(float64(len(s.docs)))
	metrics.IndexTerms.Set(float64(s.inv.Terms()))
	logger.Info("document store opened",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
		zap.Int("terms", s.inv.Terms()),
	)
	return s
}

// Append adds documents to the end of the sequence, rebuilds the index, and
// persists the whole collection. Appending nothing is a no-op and touches
// neither the index nor the file.
func (s *Store) Append(docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	s.docs = append(s.docs, docs...)
	return s.rebuildAndSave()
}

// RemoveFunc deletes every document matching pred, rebuilds the index, and
// persists. Returns the number of documents removed. Matching nothing is a
// no-op.
func (s *Store) RemoveFunc(pred func(domain.Document) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}

	kept := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if !pred(d) {
			kept = append(kept, d)
		}
	}
	removed := len(s.docs) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	s.docs = kept
	if err := s.rebuildAndSave(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Clear wipes all documents and persists the empty collection.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}

	if len(s.docs) == 0 {
		return nil
	}

	s.docs = nil
	return s.rebuildAndSave()
}

// Snapshot returns the current document sequence and index under a read lock.
// The returned slice is a copy of the sequence header; callers must not
// mutate the documents.
func (s *Store) Snapshot() ([]domain.Document, index.Inverted) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, len(s.docs))
	copy(docs, s.docs)
	return docs, s.inv
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Sources returns chunk counts grouped by source name. Documents without a
// source are grouped under "".
func (s *Store) Sources() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, d := range s.docs {
		counts[d.Source()]++
	}
	return counts
}

// Ping reports store availability for health checks.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Mutations are persisted synchronously, so
// there is nothing to flush; subsequent mutations fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// rebuildAndSave rebuilds the inverted index from the current sequence and
// rewrites the whole collection file. Callers hold the write lock. On a save
// failure the in-memory state is kept: documents stay queryable and the next
// successful save repairs the file.
func (s *Store) rebuildAndSave() error {
	s.inv = index.Build(texts(s.docs))
	metrics.DocumentsStored.Set(float64(len(s.docs)))
	metrics.IndexTerms.Set(float64(s.inv.Terms()))

	if err := saveFile(s.path, s.docs); err != nil {
		s.logger.Error("failed to persist document store",
			zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("persist document store: %w", err)
	}

	s.logger.Debug("document store persisted",
		zap.Int("documents", len(s.docs)),
		zap.Int("terms", s.inv.Terms()),
	)
	return nil
}

func texts(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}
