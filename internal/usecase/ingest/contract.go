package ingest

import "context"

// Extractor turns a local file into ordered text chunks.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// Tracker deduplicates ingested files by ID, path, and content hash.
type Tracker interface {
	IsProcessed(fileID, filePath, contentHash string) bool
	MarkProcessed(fileID, name, filePath, contentHash string) bool
	ForgetByName(name string) int
	Clear()
}

// Adder appends text chunks with parallel metadata to the document store.
type Adder interface {
	AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) int
}
