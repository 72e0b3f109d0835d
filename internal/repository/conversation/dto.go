package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type storedMessage struct {
	Timestamp float64 `json:"timestamp"`
	User      string  `json:"user"`
	Text      string  `json:"text"`
	IsBot     bool    `json:"is_bot"`
}

type storedFile struct {
	Conversations map[string][]storedMessage `json:"conversations"`
	LastAccess    map[string]float64         `json:"last_access"`
}

func toUnix(t time.Time) float64    { return float64(t.UnixNano()) / 1e9 }
func fromUnix(f float64) time.Time { return time.Unix(0, int64(f*1e9)) }

func loadFile(path string) (map[string][]Message, map[string]time.Time, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]Message), make(map[string]time.Time), nil
		}
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	var sf storedFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	threads := make(map[string][]Message, len(sf.Conversations))
	for threadID, msgs := range sf.Conversations {
		out := make([]Message, len(msgs))
		for i, sm := range msgs {
			out[i] = Message{
				Timestamp: fromUnix(sm.Timestamp),
				User:      sm.User,
				Text:      sm.Text,
				FromBot:   sm.IsBot,
			}
		}
		threads[threadID] = out
	}

	lastAccess := make(map[string]time.Time, len(sf.LastAccess))
	for threadID, ts := range sf.LastAccess {
		lastAccess[threadID] = fromUnix(ts)
	}
	return threads, lastAccess, nil
}

func saveFile(path string, threads map[string][]Message, lastAccess map[string]time.Time) error {
	sf := storedFile{
		Conversations: make(map[string][]storedMessage, len(threads)),
		LastAccess:    make(map[string]float64, len(lastAccess)),
	}
	for threadID, msgs := range threads {
		out := make([]storedMessage, len(msgs))
		for i, msg := range msgs {
			out[i] = storedMessage{
				Timestamp: toUnix(msg.Timestamp),
				User:      msg.User,
				Text:      msg.Text,
				IsBot:     msg.FromBot,
			}
		}
		sf.Conversations[threadID] = out
	}
	for threadID, ts := range lastAccess {
		sf.LastAccess[threadID] = toUnix(ts)
	}

	data, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal conversations: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".conversations-*.json")
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
