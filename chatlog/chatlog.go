// Package chatlog persists incoming client messages as per-chat JSONL
// files so a manual analysis run can rebuild recent conversations even
// after a restart.
package chatlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
)

// record is one logged message. Title travels with every record so the
// chat can be rebuilt without a separate index file.
type record struct {
	ChatID    int64     `json:"chat_id"`
	Title     string    `json:"title,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	SenderID  int64     `json:"sender_id,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Text      string    `json:"text,omitempty"`
	FileLabel string    `json:"file_label,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Log appends to one JSONL file per chat under the state directory.
type Log struct {
	dir string

	mu      sync.Mutex
	writers map[int64]*fsstore.JSONLWriter
}

func New(dir string) *Log {
	return &Log{dir: dir, writers: make(map[int64]*fsstore.JSONLWriter)}
}

// FromViper places the log under the configured chatlog directory.
func FromViper() *Log {
	return New(statepaths.ChatLogDir())
}

func (l *Log) filePath(chatID int64) string {
	return filepath.Join(l.dir, fmt.Sprintf("%d.jsonl", chatID))
}

func (l *Log) writer(chatID int64) (*fsstore.JSONLWriter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.writers[chatID]; ok {
		return w, nil
	}
	w, err := fsstore.NewJSONLWriter(l.filePath(chatID), fsstore.JSONLOptions{FlushEachWrite: true})
	if err != nil {
		return nil, err
	}
	l.writers[chatID] = w
	return w, nil
}

// Append logs one message for the chat.
func (l *Log) Append(chatID int64, title string, msg chat.Message) error {
	w, err := l.writer(chatID)
	if err != nil {
		return err
	}
	return w.AppendJSON(record{
		ChatID:    chatID,
		Title:     title,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		FileLabel: msg.FileLabel,
		SentAt:    msg.SentAt,
	})
}

// Collect rebuilds one conversation unit per chat from every message
// logged at or after since. Chats with nothing inside the window are
// omitted. Units come back ordered by chat id for stable output.
func (l *Log) Collect(since time.Time) ([]chat.History, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chatlog dir %s: %w", l.dir, err)
	}

	var out []chat.History
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		h, err := l.readOne(filepath.Join(l.dir, entry.Name()), since)
		if err != nil {
			slog.Warn("chatlog_read_failed", "file", entry.Name(), "error", err.Error())
			continue
		}
		if len(h.Messages) > 0 {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (l *Log) readOne(path string, since time.Time) (chat.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return chat.History{}, err
	}
	defer f.Close()

	var h chat.History
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			// A torn write must not poison the whole chat.
			slog.Warn("chatlog_line_skipped", "file", filepath.Base(path), "error", err.Error())
			continue
		}
		h.ChatID = r.ChatID
		if r.Title != "" {
			h.Title = r.Title
		}
		if r.SentAt.Before(since) {
			continue
		}
		h.Messages = append(h.Messages, chat.Message{
			ID:        r.MessageID,
			SenderID:  r.SenderID,
			Sender:    r.Sender,
			Text:      r.Text,
			FileLabel: r.FileLabel,
			SentAt:    r.SentAt,
		})
	}
	return h, scanner.Err()
}

// Close releases every open per-chat writer.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for id, w := range l.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(l.writers, id)
	}
	return firstErr
}
