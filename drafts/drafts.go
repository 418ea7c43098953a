// Package drafts is the in-memory holding area for generated replies
// awaiting the owner's verdict. Drafts are keyed by chat, so a newer
// draft for the same conversation replaces the stale one.
package drafts

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no draft is pending for the chat.
var ErrNotFound = errors.New("drafts: not found")

type Draft struct {
	ChatID          int64
	ChatTitle       string
	OriginalMessage string
	Text            string
	Confidence      int
	CreatedAt       time.Time
}

// Store is safe for concurrent use by the review bot and the analysis
// cycle. It is deliberately not persisted: a restart drops pending
// drafts, and the next cycle regenerates them.
type Store struct {
	mu     sync.Mutex
	byChat map[int64]Draft

	// Now is swappable in tests.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{byChat: make(map[int64]Draft)}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Add records a draft for the chat, replacing any pending one.
func (s *Store) Add(chatID int64, chatTitle, originalMessage, text string, confidence int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChat[chatID] = Draft{
		ChatID:          chatID,
		ChatTitle:       chatTitle,
		OriginalMessage: originalMessage,
		Text:            text,
		Confidence:      confidence,
		CreatedAt:       s.now(),
	}
}

func (s *Store) Get(chatID int64) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byChat[chatID]
	if !ok {
		return Draft{}, ErrNotFound
	}
	return d, nil
}

// Remove is idempotent; removing an absent draft is not an error.
func (s *Store) Remove(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
}

// Pending returns a snapshot of all drafts awaiting review.
func (s *Store) Pending() []Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Draft, 0, len(s.byChat))
	for _, d := range s.byChat {
		out = append(out, d)
	}
	return out
}

// Clear drops every pending draft, used when a manual analysis run
// supersedes whatever was waiting.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byChat)
	s.byChat = make(map[int64]Draft)
	return n
}
