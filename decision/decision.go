// Package decision combines the analyzer's confidence with the
// calendar, task-tracker and price-list signals into one final score
// and a manual-review verdict.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/pricebook"
	"github.com/IlliaSobcko/AIBI-Project/sources"
)

const (
	// NeutralScore stands in for any signal that is absent or failing.
	NeutralScore = 50

	defaultReviewThreshold = 90
	defaultCalendarWeight  = 0.20
	defaultTrelloWeight    = 0.10
	defaultPriceWeight     = 0.10
)

// Sources is the slice of the data-source manager the engine consumes.
type Sources interface {
	CheckCalendarAvailability(ctx context.Context) sources.CalendarStatus
	RelevantTasks(ctx context.Context, chatTitle string, limit int) []sources.Task
	ExtractPrices(messageText string) pricebook.Info
}

// Scores holds the per-source 0-100 values that fed one evaluation.
type Scores struct {
	AI        int
	Calendar  int
	Trello    int
	PriceList int
}

// Boosts are each source's deviation from the neutral midpoint.
type Boosts struct {
	Calendar int
	Trello   int
	Price    int
}

// Evaluation is the outcome of one scoring pass. It is computed fresh
// for every conversation unit and consumed immediately by the router.
type Evaluation struct {
	FinalConfidence   int
	NeedsManualReview bool
	Reasoning         string
	Scores            Scores
	Boosts            Boosts
}

// Engine weighs the signals. The AI weight is whatever remains after
// the three explicit source weights.
type Engine struct {
	Sources Sources

	ReviewThreshold int
	CalendarWeight  float64
	TrelloWeight    float64
	PriceWeight     float64
}

func New(src Sources) *Engine {
	return &Engine{
		Sources:         src,
		ReviewThreshold: defaultReviewThreshold,
		CalendarWeight:  defaultCalendarWeight,
		TrelloWeight:    defaultTrelloWeight,
		PriceWeight:     defaultPriceWeight,
	}
}

// FromViper builds the engine from the confidence.* and weights.* keys.
func FromViper(src Sources) *Engine {
	e := New(src)
	if v := viper.GetInt("confidence.review_threshold"); v > 0 {
		e.ReviewThreshold = v
	}
	if v := viper.GetFloat64("weights.calendar"); v > 0 {
		e.CalendarWeight = v
	}
	if v := viper.GetFloat64("weights.trello"); v > 0 {
		e.TrelloWeight = v
	}
	if v := viper.GetFloat64("weights.price_list"); v > 0 {
		e.PriceWeight = v
	}
	return e
}

func (e *Engine) aiWeight() float64 {
	w := 1.0 - e.CalendarWeight - e.TrelloWeight - e.PriceWeight
	if w < 0 {
		return 0
	}
	return w
}

// Evaluate scores one conversation unit. The unreadable-attachment rule
// is absolute: it short-circuits every other signal. Each source is
// fault-isolated; a failing one contributes the neutral score instead
// of aborting the evaluation.
func (e *Engine) Evaluate(ctx context.Context, baseConfidence int, chatTitle, messageHistory string, hasUnreadableFiles bool) Evaluation {
	if hasUnreadableFiles {
		slog.Info("decision_zero_confidence", "chat_title", chatTitle, "reason", "unreadable_files")
		return Evaluation{
			FinalConfidence:   0,
			NeedsManualReview: true,
			Reasoning:         "Unreadable files present - manual review required",
		}
	}

	scores := Scores{AI: baseConfidence}

	cal := e.calendarScore(ctx)
	scores.Calendar = cal.score

	tasks, trelloScore := e.trelloScore(ctx, chatTitle)
	scores.Trello = trelloScore

	prices, priceScore := e.priceScore(messageHistory)
	scores.PriceList = priceScore

	final := clamp(e.weigh(scores))

	ev := Evaluation{
		FinalConfidence:   final,
		NeedsManualReview: final < e.ReviewThreshold,
		Reasoning:         reasoning(scores, cal, tasks, prices),
		Scores:            scores,
		Boosts: Boosts{
			Calendar: scores.Calendar - NeutralScore,
			Trello:   scores.Trello - NeutralScore,
			Price:    scores.PriceList - NeutralScore,
		},
	}
	slog.Debug("decision_evaluated",
		"chat_title", chatTitle,
		"ai", scores.AI, "calendar", scores.Calendar,
		"trello", scores.Trello, "price_list", scores.PriceList,
		"final", final, "needs_review", ev.NeedsManualReview)
	return ev
}

// weigh truncates toward zero, not rounds.
func (e *Engine) weigh(s Scores) int {
	final := float64(s.AI)*e.aiWeight() +
		float64(s.Calendar)*e.CalendarWeight +
		float64(s.Trello)*e.TrelloWeight +
		float64(s.PriceList)*e.PriceWeight
	return int(final)
}

type calendarSignal struct {
	score     int
	available bool
	known     bool
}

func (e *Engine) calendarScore(ctx context.Context) (sig calendarSignal) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("calendar_score_panic", "error", fmt.Sprint(r))
			sig = calendarSignal{score: NeutralScore}
		}
	}()

	status := e.Sources.CheckCalendarAvailability(ctx)
	if strings.TrimSpace(status.Err) != "" {
		return calendarSignal{score: NeutralScore}
	}
	if status.IsAvailable {
		return calendarSignal{score: 70, available: true, known: true}
	}
	return calendarSignal{score: 30, known: true}
}

func (e *Engine) trelloScore(ctx context.Context, chatTitle string) (tasks []sources.Task, score int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("trello_score_panic", "error", fmt.Sprint(r))
			tasks, score = nil, NeutralScore
		}
	}()

	tasks = e.Sources.RelevantTasks(ctx, chatTitle, 5)
	if len(tasks) == 0 {
		return nil, NeutralScore
	}

	score = NeutralScore + len(tasks)*5
	if score > 70 {
		score = 70
	}
	highPriority := 0
	for _, t := range tasks {
		if t.Priority == "high" {
			highPriority++
		}
	}
	if highPriority > 0 {
		score += highPriority * 5
		if score > 85 {
			score = 85
		}
	}
	return tasks, score
}

func (e *Engine) priceScore(messageHistory string) (info pricebook.Info, score int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("price_score_panic", "error", fmt.Sprint(r))
			info, score = pricebook.Info{}, NeutralScore
		}
	}()

	info = e.Sources.ExtractPrices(messageHistory)
	switch {
	case !info.HasPriceRequest:
		return info, NeutralScore
	case info.ExactMatch:
		return info, 85
	default:
		return info, 60
	}
}

// reasoning is a pipe-joined observability string; it never drives
// control flow.
func reasoning(s Scores, cal calendarSignal, tasks []sources.Task, prices pricebook.Info) string {
	parts := []string{fmt.Sprintf("AI Analysis: %d%% confidence", s.AI)}
	if s.Calendar > 60 {
		parts = append(parts, "Calendar shows availability")
	} else if s.Calendar < 40 {
		parts = append(parts, "Calendar shows busy schedule")
	}
	if len(tasks) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d related Trello tasks", len(tasks)))
	}
	if prices.HasPriceRequest && len(prices.MatchingServices) > 0 {
		parts = append(parts, fmt.Sprintf("Price query matched %d services", len(prices.MatchingServices)))
	}
	return strings.Join(parts, " | ")
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
