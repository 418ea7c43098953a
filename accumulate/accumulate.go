// Package accumulate groups messages that arrive from the same chat in
// quick succession into one conversation unit, so a client typing in
// bursts gets one considered answer instead of several partial ones.
package accumulate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/chat"
)

// DefaultWindow is the quiet period after the last message before a
// chat's pending unit is released.
const DefaultWindow = 7 * time.Second

type pending struct {
	history  chat.History
	lastSeen time.Time
}

// Accumulator buffers per-chat messages. Safe for concurrent use.
type Accumulator struct {
	mu     sync.Mutex
	window time.Duration
	chats  map[int64]*pending

	// Now is swappable in tests.
	Now func() time.Time
}

func New(window time.Duration) *Accumulator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Accumulator{
		window: window,
		chats:  make(map[int64]*pending),
	}
}

// FromViper reads accumulate.window, falling back to the default.
func FromViper() *Accumulator {
	return New(viper.GetDuration("accumulate.window"))
}

func (a *Accumulator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Add buffers one message for its chat and restarts the chat's quiet
// window. The title of the latest message wins.
func (a *Accumulator) Add(chatID int64, title string, msg chat.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.chats[chatID]
	if !ok {
		p = &pending{history: chat.History{ChatID: chatID}}
		a.chats[chatID] = p
	}
	if title != "" {
		p.history.Title = title
	}
	p.history.Messages = append(p.history.Messages, msg)
	p.lastSeen = a.now()
}

// Due releases every chat whose quiet window has elapsed, removing it
// from the buffer. Messages stay in arrival order.
func (a *Accumulator) Due() []chat.History {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var out []chat.History
	for id, p := range a.chats {
		if now.Sub(p.lastSeen) < a.window {
			continue
		}
		if len(p.history.Messages) > 1 {
			slog.Info("messages_grouped", "chat_id", id, "count", len(p.history.Messages))
		}
		out = append(out, p.history)
		delete(a.chats, id)
	}
	return out
}

// Flush releases everything regardless of the window, used when a
// manual analysis run must see all buffered input.
func (a *Accumulator) Flush() []chat.History {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]chat.History, 0, len(a.chats))
	for id, p := range a.chats {
		out = append(out, p.history)
		delete(a.chats, id)
	}
	return out
}

// PendingChats reports how many chats are currently buffered.
func (a *Accumulator) PendingChats() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chats)
}
