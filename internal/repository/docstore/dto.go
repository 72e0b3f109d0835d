package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// storedDoc is the on-disk representation of a document. The timestamp is
// stored as fractional unix seconds to keep the file readable and
// language-neutral.
type storedDoc struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	AddedAt  float64        `json:"added_at"`
}

func toStored(d domain.Document) storedDoc {
	return storedDoc{
		Text:     d.Text,
		Metadata: d.Metadata,
		AddedAt:  float64(d.AddedAt.UnixNano()) / float64(time.Second),
	}
}

func fromStored(sd storedDoc) domain.Document {
	sec, frac := math.Modf(sd.AddedAt)
	return domain.Document{
		Text:     sd.Text,
		Metadata: sd.Metadata,
		AddedAt:  time.Unix(int64(sec), int64(frac*float64(time.Second))),
	}
}

// loadFile reads the whole collection. A missing file yields an empty store.
func loadFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var stored []storedDoc
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	docs := make([]domain.Document, len(stored))
	for i, sd := range stored {
		docs[i] = fromStored(sd)
	}
	return docs, nil
}

// saveFile rewrites the whole collection atomically (temp file + rename).
func saveFile(path string, docs []domain.Document) error {
	stored := make([]storedDoc, len(docs))
	for i, d := range docs {
		stored[i] = toStored(d)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".docstore-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}
