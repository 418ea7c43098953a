// Package sources normalizes the three optional external signals
// (calendar, task tracker, price list) into values the decision engine
// can score. A missing or failing source degrades to its neutral
// default and never aborts an evaluation.
package sources

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/calendar"
	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
	"github.com/IlliaSobcko/AIBI-Project/pricebook"
	"github.com/IlliaSobcko/AIBI-Project/trello"
)

const (
	defaultTimeout       = 8 * time.Second
	defaultHorizon       = 24 * time.Hour
	defaultBusyThreshold = 3
	defaultTaskLimit     = 5
)

type CalendarStatus struct {
	IsAvailable bool
	BusyCount   int
	Err         string
}

type Task struct {
	Title    string
	List     string
	Priority string // "high" or "normal"
	URL      string
}

type CalendarAPI interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
}

type TrelloAPI interface {
	GetLists(ctx context.Context) ([]trello.List, error)
	GetCards(ctx context.Context, listID string) ([]trello.Card, error)
}

// Manager holds whichever sources are configured. Nil clients mean
// "not configured" and yield the neutral defaults.
type Manager struct {
	Calendar     CalendarAPI
	Trello       TrelloAPI
	BusinessData string

	Timeout       time.Duration
	Horizon       time.Duration
	BusyThreshold int

	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) timeout() time.Duration {
	if m.Timeout > 0 {
		return m.Timeout
	}
	return defaultTimeout
}

// CheckCalendarAvailability counts events inside the horizon. The
// owner counts as busy from BusyThreshold events up. No calendar, or a
// failing one, reports available with the error recorded.
func (m *Manager) CheckCalendarAvailability(ctx context.Context) CalendarStatus {
	if m.Calendar == nil {
		return CalendarStatus{IsAvailable: true, BusyCount: 0, Err: "calendar not configured"}
	}

	horizon := m.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	threshold := m.BusyThreshold
	if threshold <= 0 {
		threshold = defaultBusyThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()

	now := m.now()
	events, err := m.Calendar.ListEvents(ctx, now, now.Add(horizon))
	if err != nil {
		slog.Warn("calendar_check_failed", "error", err.Error())
		return CalendarStatus{IsAvailable: true, BusyCount: 0, Err: err.Error()}
	}
	busy := len(events)
	return CalendarStatus{IsAvailable: busy < threshold, BusyCount: busy}
}

// RelevantTasks returns up to limit tracker tasks whose names overlap
// the chat title, either as a whole or by any single word. Cards whose
// names carry the "важ" marker come back flagged high priority.
func (m *Manager) RelevantTasks(ctx context.Context, chatTitle string, limit int) []Task {
	if m.Trello == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultTaskLimit
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()

	lists, err := m.Trello.GetLists(ctx)
	if err != nil {
		slog.Warn("trello_fetch_failed", "error", err.Error())
		return nil
	}

	titleLower := strings.ToLower(chatTitle)
	words := strings.Fields(titleLower)

	var tasks []Task
	for _, list := range lists {
		cards, err := m.Trello.GetCards(ctx, list.ID)
		if err != nil {
			slog.Warn("trello_fetch_failed", "list", list.Name, "error", err.Error())
			return nil
		}
		for _, card := range cards {
			cardLower := strings.ToLower(card.Name)
			if !matchesTitle(cardLower, titleLower, words) {
				continue
			}
			priority := "normal"
			if strings.Contains(cardLower, "важ") {
				priority = "high"
			}
			tasks = append(tasks, Task{
				Title:    card.Name,
				List:     list.Name,
				Priority: priority,
				URL:      card.URL,
			})
			if len(tasks) >= limit {
				return tasks
			}
		}
	}
	return tasks
}

func matchesTitle(cardLower, titleLower string, words []string) bool {
	if titleLower != "" && strings.Contains(cardLower, titleLower) {
		return true
	}
	for _, w := range words {
		if strings.Contains(cardLower, w) {
			return true
		}
	}
	return false
}

// ExtractPrices runs the price-list scan against the loaded business
// data. Purely local, so no timeout applies.
func (m *Manager) ExtractPrices(messageText string) pricebook.Info {
	return pricebook.Extract(messageText, m.BusinessData)
}

// FromViper assembles the manager from configuration. Sources without
// credentials stay nil and degrade to their neutral defaults.
func FromViper() *Manager {
	m := &Manager{
		Timeout:       viper.GetDuration("sources.timeout"),
		Horizon:       viper.GetDuration("calendar.horizon"),
		BusyThreshold: viper.GetInt("calendar.busy_threshold"),
	}

	if token := strings.TrimSpace(viper.GetString("calendar.token")); token != "" {
		m.Calendar = calendar.New(nil, "", token, viper.GetString("calendar.id"))
	}

	apiKey := strings.TrimSpace(viper.GetString("trello.api_key"))
	token := strings.TrimSpace(viper.GetString("trello.token"))
	boardID := strings.TrimSpace(viper.GetString("trello.board_id"))
	if apiKey != "" && token != "" && boardID != "" {
		m.Trello = trello.New(nil, "", apiKey, token, boardID)
	}

	data, found, err := fsstore.ReadText(statepaths.BusinessDataPath())
	if err != nil {
		slog.Warn("business_data_read_failed", "error", err.Error())
	} else if found {
		m.BusinessData = data
	}
	return m
}
