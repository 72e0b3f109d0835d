package answer

import (
	"context"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Retriever finds document chunks relevant to a question.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []domain.ScoredDocument
}

// ChatModel generates a completion for a fully rendered prompt.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Memory keeps per-thread conversation history.
type Memory interface {
	AddMessage(threadID, user, text string, fromBot bool)
	HistoryText(threadID string) string
}
