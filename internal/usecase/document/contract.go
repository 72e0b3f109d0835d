package document

import "github.com/kailas-cloud/docdex/internal/domain"

// Store defines the mutation contract over the persisted document store.
type Store interface {
	Append(docs []domain.Document) error
	RemoveFunc(pred func(domain.Document) bool) (int, error)
	Clear() error
	Len() int
	Sources() map[string]int
}
