package domain

import "time"

// Metadata keys attached to ingested chunks.
const (
	MetaSource       = "source"         // human-readable document name, used for citations
	MetaSourceFileID = "source_file_id" // opaque file identifier from the ingestion layer
	MetaChunkIndex   = "chunk_index"    // position of the chunk within its source document
)

// Document is a single ingested text passage. Its identity is its position in
// the store's ordered sequence; that position is the identifier recorded in
// inverted-index posting lists, so order must survive save/load cycles.
type Document struct {
	Text     string
	Metadata map[string]any
	AddedAt  time.Time
}

// Source returns the human-readable source name from metadata, or "" if unset.
func (d Document) Source() string {
	if s, ok := d.Metadata[MetaSource].(string); ok {
		return s
	}
	return ""
}

// ScoredDocument is a retrieval hit.
type ScoredDocument struct {
	Document Document
	Score    float64
}
