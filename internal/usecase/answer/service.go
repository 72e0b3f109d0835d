// Package answer turns retrieval hits and conversation history into a
// grounded chat-model response. Failures downstream of retrieval are
// absorbed into user-facing fallback text so a question always gets an
// answer string.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

const (
	noDocumentsReply = "I don't have any relevant information to answer your question. Please upload documents first."
	modelErrorReply  = "I'm sorry, but I encountered an error when trying to generate an answer. Please try again."
)

// Response is the outcome of answering one question.
type Response struct {
	Answer  string
	Sources []string
}

// Service orchestrates retrieve, prompt, complete, remember.
type Service struct {
	retriever Retriever
	chat      ChatModel
	memory    Memory
	logger    *zap.Logger
	topK      int
}

// New creates an answer Service. memory may be nil; history is then skipped.
func New(retriever Retriever, chat ChatModel, memory Memory, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		chat:      chat,
		memory:    memory,
		logger:    logger,
	}
}

// WithTopK overrides how many chunks are retrieved per question. Zero keeps
// the retriever's default.
func (s *Service) WithTopK(k int) *Service {
	s.topK = k
	return s
}

// Answer retrieves context for question, asks the chat model, and records
// the exchange under threadID. An empty threadID disables history. The
// returned answer is always non-empty; model failures surface as an
// apologetic reply, never as an error.
func (s *Service) Answer(ctx context.Context, question, threadID string) Response {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{Answer: noDocumentsReply}
	}

	s.remember(threadID, "user", question, false)

	hits := s.retriever.Search(ctx, question, s.topK)
	if len(hits) == 0 {
		s.remember(threadID, "bot", noDocumentsReply, true)
		return Response{Answer: noDocumentsReply}
	}

	history := ""
	if s.memory != nil && threadID != "" {
		history = s.memory.HistoryText(threadID)
	}

	reply, err := s.chat.Complete(ctx, buildPrompt(question, history, hits))
	if err != nil {
		s.logger.Error("chat completion failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
		reply = modelErrorReply
	}

	s.remember(threadID, "bot", reply, true)

	return Response{Answer: reply, Sources: sourceNames(hits)}
}

func (s *Service) remember(threadID, user, text string, fromBot bool) {
	if s.memory == nil || threadID == "" {
		return
	}
	s.memory.AddMessage(threadID, user, text, fromBot)
}

// buildPrompt renders the grounding prompt: numbered context documents with
// their source names, prior conversation if any, then the question.
func buildPrompt(question, history string, hits []domain.ScoredDocument) string {
	var b strings.Builder
	b.WriteString("You are a helpful AI assistant. Answer the user's question based on the provided documents.\n\n")
	b.WriteString("Context Documents:\n")
	for i, hit := range hits {
		source := hit.Document.Source()
		if source == "" {
			source = "Unknown source"
		}
		fmt.Fprintf(&b, "Document %d (from %s):\n%s\n\n", i+1, source, hit.Document.Text)
	}
	if history != "" {
		b.WriteString(history)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Provide a clear, concise answer based only on the information in the context documents. " +
		"If the documents don't contain relevant information to answer the question, honestly state that you don't have enough information.\n")
	return b.String()
}

// sourceNames lists the distinct source names of hits in rank order.
func sourceNames(hits []domain.ScoredDocument) []string {
	seen := make(map[string]struct{}, len(hits))
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		name := hit.Document.Source()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
