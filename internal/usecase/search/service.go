// Package search is the retrieval read path: it shortlists candidate
// documents through the inverted index snapshot and ranks them with the
// TF-IDF scorer. Search never returns an error to its caller; malformed or
// unanswerable queries degrade to an empty result set with a warning log.
package search

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/metrics"
)

// DefaultK is the number of results returned when the caller does not ask
// for a specific amount.
const DefaultK = 5

// Service handles retrieval queries over the document store.
type Service struct {
	store  Snapshotter
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a search service.
func New(store Snapshotter, logger *zap.Logger) *Service {
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

// Search returns up to k documents ranked by descending score. Ties keep
// ingestion order (stable sort). A query with no extractable keywords, or an
// empty store, yields an empty result rather than an error.
func (s *Service) Search(_ context.Context, query string, k int) []domain.ScoredDocument {
	if k <= 0 {
		k = DefaultK
	}

	start := time.Now()
	docs, inv := s.store.Snapshot()

	if len(docs) == 0 {
		s.logger.Warn("search on empty document store", zap.String("query", query))
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return nil
	}

	scorer := NewScorer(query, inv, len(docs), s.clock())
	if !scorer.HasKeywords() {
		s.logger.Warn("query yielded no keywords", zap.String("query", query))
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return nil
	}

	var scored []domain.ScoredDocument
	for _, doc := range docs {
		if score := scorer.Score(doc); score > 0 {
			scored = append(scored, domain.ScoredDocument{Document: doc, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.WithLabelValues(outcome(scored)).Inc()

	s.logger.Info("search completed",
		zap.String("query", query),
		zap.Int("candidates", len(docs)),
		zap.Int("results", len(scored)),
	)
	return scored
}

func outcome(results []domain.ScoredDocument) string {
	if len(results) == 0 {
		return "empty"
	}
	return "hit"
}
