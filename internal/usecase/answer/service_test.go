package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain"
)

type mockRetriever struct {
	hits      []domain.ScoredDocument
	lastQuery string
	lastK     int
}

func (m *mockRetriever) Search(_ context.Context, query string, k int) []domain.ScoredDocument {
	m.lastQuery = query
	m.lastK = k
	return m.hits
}

type mockChat struct {
	reply      string
	err        error
	lastPrompt string
	calls      int
}

func (m *mockChat) Complete(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.reply, m.err
}

type recordedMessage struct {
	threadID string
	user     string
	text     string
	fromBot  bool
}

type mockMemory struct {
	history  string
	messages []recordedMessage
}

func (m *mockMemory) AddMessage(threadID, user, text string, fromBot bool) {
	m.messages = append(m.messages, recordedMessage{threadID, user, text, fromBot})
}

func (m *mockMemory) HistoryText(string) string { return m.history }

func hit(text, source string) domain.ScoredDocument {
	return domain.ScoredDocument{
		Document: domain.Document{
			Text:     text,
			Metadata: map[string]any{domain.MetaSource: source},
		},
		Score: 1,
	}
}

func TestAnswerHappyPath(t *testing.T) {
	retriever := &mockRetriever{hits: []domain.ScoredDocument{
		hit("backups run nightly at 2am", "runbook.md"),
		hit("restores require the ops role", "runbook.md"),
		hit("the londo team owns billing", "teams.txt"),
	}}
	chat := &mockChat{reply: "Backups run nightly at 2am."}
	memory := &mockMemory{}
	svc := New(retriever, chat, memory, zap.NewNop())

	resp := svc.Answer(context.Background(), "when do backups run?", "thread-1")

	if resp.Answer != "Backups run nightly at 2am." {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != "runbook.md" || resp.Sources[1] != "teams.txt" {
		t.Fatalf("sources = %v", resp.Sources)
	}

	for _, want := range []string{
		"Document 1 (from runbook.md):\nbackups run nightly at 2am",
		"Document 3 (from teams.txt):",
		"Question: when do backups run?",
		"based only on the information",
	} {
		if !strings.Contains(chat.lastPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, chat.lastPrompt)
		}
	}

	if len(memory.messages) != 2 {
		t.Fatalf("recorded %d messages, want 2", len(memory.messages))
	}
	if memory.messages[0].fromBot || memory.messages[0].text != "when do backups run?" {
		t.Fatalf("first message = %+v", memory.messages[0])
	}
	if !memory.messages[1].fromBot || memory.messages[1].text != resp.Answer {
		t.Fatalf("second message = %+v", memory.messages[1])
	}
}

func TestAnswerIncludesHistory(t *testing.T) {
	retriever := &mockRetriever{hits: []domain.ScoredDocument{hit("some context", "a.txt")}}
	chat := &mockChat{reply: "ok"}
	memory := &mockMemory{history: "Previous Conversation:\nUser: hi\nBot: hello\n"}
	svc := New(retriever, chat, memory, zap.NewNop())

	svc.Answer(context.Background(), "follow-up question", "thread-1")

	if !strings.Contains(chat.lastPrompt, "Previous Conversation:\nUser: hi\nBot: hello\n") {
		t.Fatalf("prompt missing history:\n%s", chat.lastPrompt)
	}
	// History sits between the context block and the question.
	if strings.Index(chat.lastPrompt, "Previous Conversation:") > strings.Index(chat.lastPrompt, "Question:") {
		t.Fatalf("history placed after question:\n%s", chat.lastPrompt)
	}
}

func TestAnswerNoHits(t *testing.T) {
	retriever := &mockRetriever{}
	chat := &mockChat{}
	memory := &mockMemory{}
	svc := New(retriever, chat, memory, zap.NewNop())

	resp := svc.Answer(context.Background(), "anything at all?", "thread-1")

	if resp.Answer != noDocumentsReply {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("sources = %v", resp.Sources)
	}
	if chat.calls != 0 {
		t.Fatal("chat model called without context documents")
	}
	// The fallback is still part of the conversation.
	if len(memory.messages) != 2 || memory.messages[1].text != noDocumentsReply {
		t.Fatalf("messages = %+v", memory.messages)
	}
}

func TestAnswerModelFailure(t *testing.T) {
	retriever := &mockRetriever{hits: []domain.ScoredDocument{hit("context", "a.txt")}}
	chat := &mockChat{err: errors.New("upstream 500")}
	memory := &mockMemory{}
	svc := New(retriever, chat, memory, zap.NewNop())

	resp := svc.Answer(context.Background(), "question?", "thread-1")

	if resp.Answer != modelErrorReply {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %v", resp.Sources)
	}
	if memory.messages[1].text != modelErrorReply {
		t.Fatalf("recorded bot message = %+v", memory.messages[1])
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	retriever := &mockRetriever{}
	chat := &mockChat{}
	svc := New(retriever, chat, &mockMemory{}, zap.NewNop())

	resp := svc.Answer(context.Background(), "   ", "thread-1")
	if resp.Answer != noDocumentsReply {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if retriever.lastQuery != "" {
		t.Fatal("retriever called for blank question")
	}
}

func TestAnswerWithoutThread(t *testing.T) {
	retriever := &mockRetriever{hits: []domain.ScoredDocument{hit("context", "a.txt")}}
	chat := &mockChat{reply: "ok"}
	memory := &mockMemory{history: "Previous Conversation:\nUser: hi\n"}
	svc := New(retriever, chat, memory, zap.NewNop())

	svc.Answer(context.Background(), "question?", "")

	if len(memory.messages) != 0 {
		t.Fatalf("messages recorded without thread: %+v", memory.messages)
	}
	if strings.Contains(chat.lastPrompt, "Previous Conversation") {
		t.Fatal("history included without thread")
	}
}

func TestAnswerTopK(t *testing.T) {
	retriever := &mockRetriever{hits: []domain.ScoredDocument{hit("context", "a.txt")}}
	svc := New(retriever, &mockChat{reply: "ok"}, nil, zap.NewNop()).WithTopK(3)

	svc.Answer(context.Background(), "question?", "")
	if retriever.lastK != 3 {
		t.Fatalf("k = %d, want 3", retriever.lastK)
	}
}

func TestSourceNamesSkipsUnnamed(t *testing.T) {
	hits := []domain.ScoredDocument{
		hit("a", "x.txt"),
		{Document: domain.Document{Text: "b"}},
		hit("c", "x.txt"),
	}
	names := sourceNames(hits)
	if len(names) != 1 || names[0] != "x.txt" {
		t.Fatalf("names = %v", names)
	}
}
