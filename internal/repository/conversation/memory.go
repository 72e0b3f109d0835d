// Package conversation keeps short per-thread chat histories so follow-up
// questions can be answered in context. Histories are persisted to a single
// JSON file and expire after a day of inactivity.
package conversation

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// MaxTurns is the number of question/answer pairs kept per thread.
	MaxTurns = 5
	// MaxAge is how long an untouched thread survives.
	MaxAge = 24 * time.Hour
)

// Message is one utterance in a thread.
type Message struct {
	Timestamp time.Time
	User      string
	Text      string
	FromBot   bool
}

// Memory is a persisted map of thread ID to message history.
type Memory struct {
	path   string
	logger *zap.Logger
	clock  func() time.Time

	mu         sync.Mutex
	threads    map[string][]Message
	lastAccess map[string]time.Time
}

// Open loads conversation history from path and drops expired threads.
// Missing or corrupt files start empty, the error is logged.
func Open(path string, logger *zap.Logger) *Memory {
	m := &Memory{
		path:       path,
		logger:     logger,
		clock:      time.Now,
		threads:    make(map[string][]Message),
		lastAccess: make(map[string]time.Time),
	}

	threads, lastAccess, err := loadFile(path)
	if err != nil {
		logger.Warn("failed to load conversation memory, starting empty",
			zap.String("path", path), zap.Error(err))
		return m
	}
	m.threads = threads
	m.lastAccess = lastAccess

	removed := m.cleanupLocked()
	logger.Info("conversation memory loaded",
		zap.String("path", path),
		zap.Int("threads", len(m.threads)),
		zap.Int("expired", removed),
	)
	return m
}

// WithClock overrides the time source, for tests.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

// AddMessage appends an utterance to a thread, trimming the history to the
// last MaxTurns question/answer pairs, and persists.
func (m *Memory) AddMessage(threadID, user, text string, fromBot bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	msgs := append(m.threads[threadID], Message{
		Timestamp: now,
		User:      user,
		Text:      text,
		FromBot:   fromBot,
	})
	// Keep pairs of user and bot messages.
	if limit := MaxTurns * 2; len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	m.threads[threadID] = msgs
	m.lastAccess[threadID] = now

	m.saveLocked()
}

// History returns the messages of a thread, refreshing its access time.
func (m *Memory) History(threadID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs, ok := m.threads[threadID]
	if !ok {
		return nil
	}
	m.lastAccess[threadID] = m.clock()

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// HistoryText renders a thread's history as a context block for the answer
// prompt. Empty threads render as "".
func (m *Memory) HistoryText(threadID string) string {
	msgs := m.History(threadID)
	if len(msgs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previous Conversation:\n")
	for _, msg := range msgs {
		speaker := "User"
		if msg.FromBot {
			speaker = "Bot"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// ClearThread drops a single thread's history and persists.
func (m *Memory) ClearThread(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.threads[threadID]; !ok {
		return
	}
	delete(m.threads, threadID)
	delete(m.lastAccess, threadID)
	m.saveLocked()
}

// CleanupExpired removes threads untouched for longer than MaxAge. Returns
// the number removed.
func (m *Memory) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.cleanupLocked()
	if removed > 0 {
		m.saveLocked()
	}
	return removed
}

// Len returns the number of live threads.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}

func (m *Memory) cleanupLocked() int {
	now := m.clock()
	removed := 0
	for threadID, last := range m.lastAccess {
		if now.Sub(last) > MaxAge {
			delete(m.threads, threadID)
			delete(m.lastAccess, threadID)
			removed++
		}
	}
	return removed
}

func (m *Memory) saveLocked() {
	if err := saveFile(m.path, m.threads, m.lastAccess); err != nil {
		m.logger.Error("failed to persist conversation memory",
			zap.String("path", m.path), zap.Error(err))
	}
}
