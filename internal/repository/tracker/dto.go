package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// record is the on-disk entry for one processed file.
type record struct {
	Name        string  `json:"name"`
	Path        string  `json:"path,omitempty"`
	ContentHash string  `json:"content_hash,omitempty"`
	ProcessedAt float64 `json:"processed_at"`
}

func loadFile(path string) (map[string]record, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]record), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records := make(map[string]record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func saveFile(path string, records map[string]record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tracker-*.json")
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
