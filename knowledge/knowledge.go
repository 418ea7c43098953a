// Package knowledge stores owner-approved reply patterns and feeds
// them back into generation: relevant past answers are injected into
// the prompt, and a periodic FAQ digest becomes dynamic instructions.
package knowledge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
)

const (
	schemaVersion = "1.0"

	maxQuestionLen = 500
	maxResponseLen = 1000
	maxSameClient  = 2
	maxKeywords    = 10

	// DefaultExampleLimit is how many past patterns are injected into
	// a generation prompt.
	DefaultExampleLimit = 5
)

// Pattern is one approved reply, as stored on disk.
type Pattern struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ChatID           int64     `json:"chat_id"`
	ChatTitle        string    `json:"chat_title"`
	ClientQuestion   string    `json:"client_question"`
	ApprovedResponse string    `json:"approved_response"`
	Confidence       int       `json:"confidence"`
	UsedCount        int       `json:"used_count"`
}

type metadata struct {
	TotalApprovals int       `json:"total_approvals"`
	LastUpdated    time.Time `json:"last_updated"`
	Version        string    `json:"version"`
}

type document struct {
	Replies  []Pattern `json:"replies"`
	Metadata metadata  `json:"metadata"`
}

// Store is the file-backed pattern library. All access goes through
// the mutex; the file is rewritten atomically on every mutation.
type Store struct {
	path string

	mu  sync.Mutex
	doc document

	// Now is swappable in tests.
	Now func() time.Time
}

// Open loads the library, starting empty when the file does not exist
// or cannot be parsed. A broken file never blocks the assistant.
func Open(path string) *Store {
	s := &Store{path: path}
	found, err := fsstore.ReadJSON(path, &s.doc)
	switch {
	case err != nil:
		slog.Warn("knowledge_load_failed", "path", path, "error", err.Error())
		s.doc = document{}
	case found:
		slog.Info("knowledge_loaded", "patterns", len(s.doc.Replies))
	}
	if s.doc.Metadata.Version == "" {
		s.doc.Metadata.Version = schemaVersion
	}
	return s
}

// FromViper opens the library at the configured knowledge path.
func FromViper() *Store {
	return Open(statepaths.KnowledgePath())
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) saveLocked() error {
	s.doc.Metadata.LastUpdated = s.now()
	s.doc.Metadata.TotalApprovals = len(s.doc.Replies)
	s.doc.Metadata.Version = schemaVersion
	return fsstore.WriteJSONAtomic(s.path, s.doc, fsstore.FileOptions{})
}

// Add records one approved reply. Question and response are truncated
// to keep the library bounded.
func (s *Store) Add(chatID int64, chatTitle, clientQuestion, approvedResponse string, confidence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Replies = append(s.doc.Replies, Pattern{
		ID:               uuid.NewString(),
		Timestamp:        s.now(),
		ChatID:           chatID,
		ChatTitle:        chatTitle,
		ClientQuestion:   truncate(clientQuestion, maxQuestionLen),
		ApprovedResponse: truncate(approvedResponse, maxResponseLen),
		Confidence:       confidence,
	})
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("save knowledge: %w", err)
	}
	slog.Info("knowledge_pattern_added", "chat_title", chatTitle, "total", len(s.doc.Replies))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// RelevantExamples picks up to limit past patterns for prompt
// injection: same-client first (max 2), then keyword-overlap matches,
// then most recent as filler. Returned patterns get their used_count
// bumped and persisted.
func (s *Store) RelevantExamples(clientQuestion, chatTitle string, limit int) []Pattern {
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doc.Replies) == 0 {
		return nil
	}

	picked := make([]int, 0, limit)
	seen := make(map[int]bool)
	take := func(idx int) bool {
		if seen[idx] {
			return false
		}
		seen[idx] = true
		picked = append(picked, idx)
		return len(picked) >= limit
	}

	if chatTitle != "" {
		sameClient := 0
		for i := range s.doc.Replies {
			if !strings.EqualFold(s.doc.Replies[i].ChatTitle, chatTitle) {
				continue
			}
			if take(i) {
				break
			}
			sameClient++
			if sameClient >= maxSameClient {
				break
			}
		}
	}

	if len(picked) < limit {
		keywords := extractKeywords(clientQuestion)
		type scored struct {
			idx   int
			score int
		}
		var matches []scored
		for i := range s.doc.Replies {
			q := strings.ToLower(s.doc.Replies[i].ClientQuestion)
			score := 0
			for _, kw := range keywords {
				if strings.Contains(q, kw) {
					score++
				}
			}
			if score > 0 {
				matches = append(matches, scored{idx: i, score: score})
			}
		}
		sort.SliceStable(matches, func(a, b int) bool { return matches[a].score > matches[b].score })
		for _, m := range matches {
			if seen[m.idx] {
				continue
			}
			if take(m.idx) {
				break
			}
		}
	}

	if len(picked) < limit {
		order := make([]int, len(s.doc.Replies))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return s.doc.Replies[order[a]].Timestamp.After(s.doc.Replies[order[b]].Timestamp)
		})
		for _, idx := range order {
			if seen[idx] {
				continue
			}
			if take(idx) {
				break
			}
		}
	}

	out := make([]Pattern, 0, len(picked))
	for _, idx := range picked {
		s.doc.Replies[idx].UsedCount++
		out = append(out, s.doc.Replies[idx])
	}
	if err := s.saveLocked(); err != nil {
		slog.Warn("knowledge_save_failed", "error", err.Error())
	}
	slog.Debug("knowledge_examples_selected", "count", len(out))
	return out
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "can": true, "could": true, "will": true,
	"що": true, "як": true, "чи": true, "де": true, "коли": true,
	"хто": true, "чому": true, "я": true, "ти": true, "ви": true, "він": true,
}

func extractKeywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len([]rune(w)) <= 3 || stopwords[w] {
			continue
		}
		out = append(out, w)
		if len(out) >= maxKeywords {
			break
		}
	}
	return out
}

// Statistics is the summary shown by the reviewer bot.
type Statistics struct {
	TotalPatterns int
	LastUpdated   time.Time
	ClientsHelped int
	MostUsed      []Pattern
	Recent        []Pattern
}

func (s *Store) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := make(map[int64]bool)
	for _, r := range s.doc.Replies {
		clients[r.ChatID] = true
	}

	byUse := append([]Pattern(nil), s.doc.Replies...)
	sort.SliceStable(byUse, func(a, b int) bool { return byUse[a].UsedCount > byUse[b].UsedCount })
	byTime := append([]Pattern(nil), s.doc.Replies...)
	sort.SliceStable(byTime, func(a, b int) bool { return byTime[a].Timestamp.After(byTime[b].Timestamp) })

	return Statistics{
		TotalPatterns: len(s.doc.Replies),
		LastUpdated:   s.doc.Metadata.LastUpdated,
		ClientsHelped: len(clients),
		MostUsed:      head(byUse, 5),
		Recent:        head(byTime, 5),
	}
}

func head(p []Pattern, n int) []Pattern {
	if len(p) > n {
		return p[:n]
	}
	return p
}
