package search

import (
	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/index"
)

// Snapshotter provides a consistent view of the document sequence and its
// inverted index, taken under the store's read lock.
type Snapshotter interface {
	Snapshot() ([]domain.Document, index.Inverted)
}
