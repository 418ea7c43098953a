package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
)

// Event is one routing decision as it was acted on. Events are
// append-only; the log is the authoritative trail of what the
// assistant did with each conversation.
type Event struct {
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	CycleID      string    `json:"cycle_id,omitempty"`
	ChatID       int64     `json:"chat_id"`
	ChatTitle    string    `json:"chat_title,omitempty"`
	Action       string    `json:"action"`
	Confidence   int       `json:"confidence"`
	AIConfidence int       `json:"ai_confidence,omitempty"`
	NeedsReview  bool      `json:"needs_review,omitempty"`
	SendMethod   string    `json:"send_method,omitempty"`
	Reasoning    string    `json:"reasoning,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type Sink interface {
	Emit(ctx context.Context, e Event) error
	Close() error
}

type JSONLSink struct {
	path     string
	lockPath string
	writer   *fsstore.JSONLWriter

	mu sync.Mutex
}

func NewJSONLSink(path string, rotateMaxBytes int64, lockRoot string) (*JSONLSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing jsonl path")
	}
	if strings.TrimSpace(lockRoot) == "" {
		lockRoot = filepath.Join(filepath.Dir(path), ".fslocks")
	}
	lockPath, err := fsstore.BuildLockPath(lockRoot, "audit.decisions_jsonl")
	if err != nil {
		return nil, err
	}
	writer, err := fsstore.NewJSONLWriter(path, fsstore.JSONLOptions{
		RotateMaxBytes: rotateMaxBytes,
		FlushEachWrite: true,
	})
	if err != nil {
		return nil, err
	}
	return &JSONLSink{
		path:     path,
		lockPath: lockPath,
		writer:   writer,
	}, nil
}

func (s *JSONLSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	if strings.TrimSpace(e.EventID) == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return fsstore.WithLock(ctx, s.lockPath, func() error {
		return s.writer.AppendJSON(e)
	})
}

func (s *JSONLSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}

// NopSink drops every event. Used when auditing is disabled.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }
func (NopSink) Close() error                      { return nil }
