// Package extract turns local files into ordered text chunks for indexing.
// Only plain-text formats are handled here; binary formats (PDF, DOCX, XLSX)
// are expected to arrive as already-extracted text through the same Extractor
// seam.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the number of characters consecutive chunks share.
	DefaultOverlap = 100
)

// Extractor reads supported files and splits their text into chunks.
type Extractor struct {
	chunkSize int
	overlap   int
}

// New creates an extractor with default chunking.
func New() *Extractor {
	return &Extractor{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
}

// WithChunking overrides chunk size and overlap. Invalid values keep the
// defaults.
func (e *Extractor) WithChunking(size, overlap int) *Extractor {
	if size > 0 && overlap >= 0 && overlap < size {
		e.chunkSize = size
		e.overlap = overlap
	}
	return e
}

// Supported reports whether the file extension is handled.
func (e *Extractor) Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// Extract reads the file and returns its text as ordered chunks. Unsupported
// extensions yield ErrUnsupportedFile; an empty file yields ErrEmptyExtraction.
func (e *Extractor) Extract(path string) ([]string, error) {
	if !e.Supported(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(path), domain.ErrUnsupportedFile)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	chunks := ChunkText(string(data), e.chunkSize, e.overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyExtraction)
	}
	return chunks, nil
}

// ChunkText splits text into chunks of at most size characters, each starting
// size-overlap characters after the previous one. Whitespace-only text yields
// no chunks. A non-positive stride falls back to the default chunking.
func ChunkText(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 || overlap < 0 || overlap >= size {
		size, overlap = DefaultChunkSize, DefaultOverlap
	}

	runes := []rune(text)
	stride := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
