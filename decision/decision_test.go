package decision

import (
	"context"
	"strings"
	"testing"

	"github.com/IlliaSobcko/AIBI-Project/pricebook"
	"github.com/IlliaSobcko/AIBI-Project/sources"
)

type fakeSources struct {
	calendar sources.CalendarStatus
	tasks    []sources.Task
	prices   pricebook.Info

	panicCalendar bool
	panicTasks    bool
	panicPrices   bool
}

func (f *fakeSources) CheckCalendarAvailability(context.Context) sources.CalendarStatus {
	if f.panicCalendar {
		panic("calendar exploded")
	}
	return f.calendar
}

func (f *fakeSources) RelevantTasks(_ context.Context, _ string, _ int) []sources.Task {
	if f.panicTasks {
		panic("trello exploded")
	}
	return f.tasks
}

func (f *fakeSources) ExtractPrices(string) pricebook.Info {
	if f.panicPrices {
		panic("pricebook exploded")
	}
	return f.prices
}

func neutralSources() *fakeSources {
	return &fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true, Err: "calendar not configured"},
	}
}

func TestEvaluateZeroConfidenceOverridesEverything(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true},
		tasks: []sources.Task{
			{Title: "важлива угода", Priority: "high"},
		},
		prices: pricebook.Info{HasPriceRequest: true, ExactMatch: true},
	})

	ev := e.Evaluate(context.Background(), 100, "Client", "Скільки коштує?", true)
	if ev.FinalConfidence != 0 {
		t.Fatalf("FinalConfidence = %d, want 0", ev.FinalConfidence)
	}
	if !ev.NeedsManualReview {
		t.Fatalf("NeedsManualReview = false, want true")
	}
	if ev.Scores != (Scores{}) {
		t.Fatalf("Scores = %+v, want all zero", ev.Scores)
	}
}

func TestEvaluateClampsToRange(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true},
		prices:   pricebook.Info{HasPriceRequest: true, ExactMatch: true},
	})
	for _, base := range []int{-50, 0, 100, 500} {
		ev := e.Evaluate(context.Background(), base, "Client", "price?", false)
		if ev.FinalConfidence < 0 || ev.FinalConfidence > 100 {
			t.Fatalf("Evaluate(base=%d).FinalConfidence = %d, want within [0,100]", base, ev.FinalConfidence)
		}
	}
}

func TestEvaluateNeutralFallbackOnPanics(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{panicCalendar: true, panicTasks: true, panicPrices: true})
	ev := e.Evaluate(context.Background(), 60, "Client", "Скільки коштує?", false)

	if ev.Scores.Calendar != NeutralScore {
		t.Fatalf("calendar score = %d, want %d", ev.Scores.Calendar, NeutralScore)
	}
	if ev.Scores.Trello != NeutralScore {
		t.Fatalf("trello score = %d, want %d", ev.Scores.Trello, NeutralScore)
	}
	if ev.Scores.PriceList != NeutralScore {
		t.Fatalf("price score = %d, want %d", ev.Scores.PriceList, NeutralScore)
	}
}

func TestEvaluateCalendarErrorStaysNeutral(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true, Err: "http 500"},
	})
	ev := e.Evaluate(context.Background(), 60, "Client", "hello", false)
	if ev.Scores.Calendar != NeutralScore {
		t.Fatalf("calendar score = %d, want neutral %d on error", ev.Scores.Calendar, NeutralScore)
	}
}

// AI 60, every other source neutral: 60*0.6 + 50*0.4 = 56, below the
// review threshold of 90.
func TestEvaluateAllNeutralScenario(t *testing.T) {
	t.Parallel()

	e := New(neutralSources())
	ev := e.Evaluate(context.Background(), 60, "Client", "Добрий день", false)

	if ev.FinalConfidence != 56 {
		t.Fatalf("FinalConfidence = %d, want 56", ev.FinalConfidence)
	}
	if !ev.NeedsManualReview {
		t.Fatalf("NeedsManualReview = false, want true below threshold %d", e.ReviewThreshold)
	}
}

// Price question with a match, calendar available, AI 95:
// 95*0.6 + 70*0.2 + 50*0.1 + 85*0.1 = 84.5, and the fractional part
// must truncate toward zero, not round.
func TestEvaluateTruncatesNotRounds(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true},
		prices:   pricebook.Info{HasPriceRequest: true, ExactMatch: true, MatchingServices: []string{"Pro: $200"}},
	})
	ev := e.Evaluate(context.Background(), 95, "Client", "What's the price of the Pro package?", false)

	weighted := 95*0.6 + 70*0.2 + 50*0.1 + 85*0.1
	want := int(weighted)
	if want != 84 {
		t.Fatalf("truncated weighted sum = %d, want 84", want)
	}
	if ev.FinalConfidence != want {
		t.Fatalf("FinalConfidence = %d, want %d", ev.FinalConfidence, want)
	}
}

func TestTrelloScoreCaps(t *testing.T) {
	t.Parallel()

	manyNormal := make([]sources.Task, 10)
	for i := range manyNormal {
		manyNormal[i] = sources.Task{Title: "task", Priority: "normal"}
	}
	manyHigh := make([]sources.Task, 10)
	for i := range manyHigh {
		manyHigh[i] = sources.Task{Title: "важлива", Priority: "high"}
	}

	cases := []struct {
		name  string
		tasks []sources.Task
		want  int
	}{
		{"none", nil, 50},
		{"two normal", manyNormal[:2], 60},
		{"many normal caps at 70", manyNormal, 70},
		{"one high", manyHigh[:1], 60},
		{"many high caps at 85", manyHigh, 85},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := New(&fakeSources{
				calendar: sources.CalendarStatus{IsAvailable: true},
				tasks:    tc.tasks,
			})
			_, got := e.trelloScore(context.Background(), "chat")
			if got != tc.want {
				t.Fatalf("trelloScore(%d tasks) = %d, want %d", len(tc.tasks), got, tc.want)
			}
		})
	}
}

func TestReasoningMentionsActiveSignals(t *testing.T) {
	t.Parallel()

	e := New(&fakeSources{
		calendar: sources.CalendarStatus{IsAvailable: true},
		tasks:    []sources.Task{{Title: "deal"}},
		prices:   pricebook.Info{HasPriceRequest: true, ExactMatch: true, MatchingServices: []string{"Лендінг: $500"}},
	})
	ev := e.Evaluate(context.Background(), 80, "Client", "Скільки коштує лендінг?", false)

	for _, want := range []string{"AI Analysis: 80% confidence", "Calendar shows availability", "Found 1 related Trello tasks", "Price query matched 1 services"} {
		if !strings.Contains(ev.Reasoning, want) {
			t.Fatalf("Reasoning = %q, missing %q", ev.Reasoning, want)
		}
	}
	if !strings.Contains(ev.Reasoning, " | ") {
		t.Fatalf("Reasoning = %q, want pipe-joined parts", ev.Reasoning)
	}
}
