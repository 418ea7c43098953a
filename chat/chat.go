// Package chat defines the conversation unit the assistant scores and
// replies to: an ordered set of client messages merged into one text.
package chat

import (
	"strings"
	"time"
)

// Message is one raw client message. Attachments the assistant cannot
// read as text carry a FileLabel instead of Text.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	SenderID  int64     `json:"sender_id,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Text      string    `json:"text,omitempty"`
	FileLabel string    `json:"file_label,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// IsFile reports whether the message carried an unreadable attachment.
func (m Message) IsFile() bool {
	return strings.TrimSpace(m.FileLabel) != ""
}

// Line renders the message as one history line. File messages become a
// stable "[FILE: name]" marker so downstream scoring can see them.
func (m Message) Line() string {
	if m.IsFile() {
		return "[FILE: " + strings.TrimSpace(m.FileLabel) + "]"
	}
	return m.Text
}

// History is one conversation unit: every message of a chat that is
// waiting for a decision, in chronological order.
type History struct {
	ChatID   int64
	Title    string
	Messages []Message
}

// Text joins all message lines with newlines, skipping blank ones.
func (h History) Text() string {
	lines := make([]string, 0, len(h.Messages))
	for _, m := range h.Messages {
		line := strings.TrimSpace(m.Line())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// HasUnreadableFiles reports whether any message in the unit is an
// attachment the assistant cannot read.
func (h History) HasUnreadableFiles() bool {
	for _, m := range h.Messages {
		if m.IsFile() {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the unit has nothing to score.
func (h History) IsEmpty() bool {
	return strings.TrimSpace(h.Text()) == ""
}

// LastMessageAt returns the timestamp of the newest message.
func (h History) LastMessageAt() time.Time {
	var last time.Time
	for _, m := range h.Messages {
		if m.SentAt.After(last) {
			last = m.SentAt
		}
	}
	return last
}
