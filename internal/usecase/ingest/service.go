// Package ingest feeds files into the retrieval store: extract chunks, skip
// files already seen, append the chunks with citation metadata, and remember
// the file. Ingestion failures degrade to a "nothing processed" result; only
// programmer-level misuse surfaces as an error.
package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/metrics"
	"github.com/kailas-cloud/docdex/internal/repository/tracker"
)

// Result reports what one ProcessFile call did.
type Result struct {
	Processed bool
	Chunks    int
}

// Service handles file ingestion.
type Service struct {
	extractor Extractor
	tracker   Tracker
	docs      Adder
	logger    *zap.Logger
	hashFile  func(path string) (string, error)
}

// New creates an ingest service.
func New(extractor Extractor, tr Tracker, docs Adder, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		tracker:   tr,
		docs:      docs,
		logger:    logger,
		hashFile:  tracker.HashFile,
	}
}

// WithHasher overrides content hashing, for tests.
func (s *Service) WithHasher(hash func(path string) (string, error)) *Service {
	s.hashFile = hash
	return s
}

// ProcessFile ingests one file. fileID is an opaque identifier from the
// delivery layer (falls back to the path when empty); name is the
// human-readable source used for citations. Already-known files are skipped
// with Processed=false and no error.
func (s *Service) ProcessFile(ctx context.Context, path, fileID, name string) (Result, error) {
	if fileID == "" {
		fileID = path
	}

	hash, err := s.hashFile(path)
	if err != nil {
		// Hashing is only for dedup; ingestion proceeds on ID and path alone.
		s.logger.Warn("failed to hash file content",
			zap.String("path", path), zap.Error(err))
		hash = ""
	}

	if s.tracker.IsProcessed(fileID, path, hash) {
		s.logger.Info("skipping already-processed file",
			zap.String("path", path), zap.String("file_id", fileID))
		metrics.FilesIngestedTotal.WithLabelValues("skipped").Inc()
		return Result{}, nil
	}

	chunks, err := s.extractor.Extract(path)
	if err != nil {
		// A file with no extractable text is skipped, not failed.
		if errors.Is(err, domain.ErrEmptyExtraction) {
			s.logger.Warn("no text extracted, skipping file",
				zap.String("path", path))
			metrics.FilesIngestedTotal.WithLabelValues("skipped").Inc()
			return Result{}, nil
		}
		s.logger.Warn("extraction failed",
			zap.String("path", path), zap.Error(err))
		metrics.FilesIngestedTotal.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		metadatas[i] = map[string]any{
			domain.MetaSource:       name,
			domain.MetaSourceFileID: fileID,
			domain.MetaChunkIndex:   i,
		}
	}

	added := s.docs.AddTexts(ctx, chunks, metadatas)
	if added == 0 {
		s.logger.Error("no chunks stored for file", zap.String("path", path))
		metrics.FilesIngestedTotal.WithLabelValues("failed").Inc()
		return Result{}, nil
	}

	s.tracker.MarkProcessed(fileID, name, path, hash)
	metrics.FilesIngestedTotal.WithLabelValues("processed").Inc()

	s.logger.Info("file ingested",
		zap.String("path", path),
		zap.String("source", name),
		zap.Int("chunks", added),
	)
	return Result{Processed: true, Chunks: added}, nil
}

// Forget drops the dedup records for a named source, so the file can be
// ingested again after its chunks were removed from the store.
func (s *Service) Forget(name string) int {
	return s.tracker.ForgetByName(name)
}

// Reset clears all dedup records. Pairs with clearing the document store.
func (s *Service) Reset() {
	s.tracker.Clear()
}
