// Package tracker records which source files have already been ingested, so
// re-delivered or renamed copies of the same content are not indexed twice.
// Files are recognized by ID, by path, and by SHA-256 content hash.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker is a persisted set of processed-file records keyed by file ID.
type Tracker struct {
	path   string
	logger *zap.Logger
	clock  func() time.Time

	mu      sync.Mutex
	records map[string]record
	hashes  map[string]struct{}
	paths   map[string]struct{}
}

// Open loads the tracker from path. Missing or corrupt files start empty, the
// error is logged.
func Open(path string, logger *zap.Logger) *Tracker {
	t := &Tracker{
		path:    path,
		logger:  logger,
		clock:   time.Now,
		records: make(map[string]record),
		hashes:  make(map[string]struct{}),
		paths:   make(map[string]struct{}),
	}

	records, err := loadFile(path)
	if err != nil {
		logger.Warn("failed to load processed-file tracker, starting empty",
			zap.String("path", path), zap.Error(err))
		return t
	}

	t.records = records
	for _, r := range records {
		if r.ContentHash != "" {
			t.hashes[r.ContentHash] = struct{}{}
		}
		if r.Path != "" {
			t.paths[r.Path] = struct{}{}
		}
	}
	logger.Info("processed-file tracker loaded",
		zap.String("path", path), zap.Int("files", len(records)))
	return t
}

// WithClock overrides the time source, for tests.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// IsProcessed reports whether the file is already known by ID, by content
// hash, or by path. Empty hash/path arguments are not matched.
func (t *Tracker) IsProcessed(fileID, filePath, contentHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[fileID]; ok {
		return true
	}
	if contentHash != "" {
		if _, ok := t.hashes[contentHash]; ok {
			return true
		}
	}
	if filePath != "" {
		if _, ok := t.paths[filePath]; ok {
			return true
		}
	}
	return false
}

// MarkProcessed records the file. Returns false if it was already known.
func (t *Tracker) MarkProcessed(fileID, name, filePath, contentHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isKnownLocked(fileID, filePath, contentHash) {
		return false
	}

	t.records[fileID] = record{
		Name:        name,
		Path:        filePath,
		ContentHash: contentHash,
		ProcessedAt: float64(t.clock().UnixNano()) / 1e9,
	}
	if contentHash != "" {
		t.hashes[contentHash] = struct{}{}
	}
	if filePath != "" {
		t.paths[filePath] = struct{}{}
	}
	t.saveLocked()
	return true
}

// ForgetByName drops every record whose display name matches, so the file can
// be re-ingested after its documents were removed from the store.
func (t *Tracker) ForgetByName(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	forgotten := 0
	for id, r := range t.records {
		if r.Name != name {
			continue
		}
		delete(t.records, id)
		delete(t.hashes, r.ContentHash)
		delete(t.paths, r.Path)
		forgotten++
	}
	if forgotten > 0 {
		t.saveLocked()
	}
	return forgotten
}

// Count returns the number of tracked files.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Clear wipes all records and persists the empty set.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]record)
	t.hashes = make(map[string]struct{})
	t.paths = make(map[string]struct{})
	t.saveLocked()
}

func (t *Tracker) isKnownLocked(fileID, filePath, contentHash string) bool {
	if _, ok := t.records[fileID]; ok {
		return true
	}
	if contentHash != "" {
		if _, ok := t.hashes[contentHash]; ok {
			return true
		}
	}
	if filePath != "" {
		if _, ok := t.paths[filePath]; ok {
			return true
		}
	}
	return false
}

// saveLocked persists the record set. Failures are logged, not surfaced:
// losing dedup state degrades to re-processing a file, never to data loss.
func (t *Tracker) saveLocked() {
	if err := saveFile(t.path, t.records); err != nil {
		t.logger.Error("failed to persist processed-file tracker",
			zap.String("path", t.path), zap.Error(err))
	}
}

// HashFile returns the hex SHA-256 of the file's content.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
