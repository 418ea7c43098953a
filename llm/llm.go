// Package llm defines the thin chat-completion surface the assistant
// needs from a language model backend. Providers adapt their SDKs to
// Client; everything above it (analysis, reply generation) stays
// backend agnostic.
package llm

import (
	"context"
	"time"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds an instruction message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a prompt message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	JSON     any
	Usage    Usage
	Duration time.Duration
}

// Request is one completion call. ForceJSON asks the backend for a
// JSON-mode response where the provider supports it; callers still
// parse defensively because not every model honors it.
type Request struct {
	Model      string
	Messages   []Message
	ForceJSON  bool
	Parameters map[string]any
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
