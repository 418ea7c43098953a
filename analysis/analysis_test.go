package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/llm"
)

func TestParseAgentResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name           string
		in             string
		wantReport     string
		wantConfidence int
	}{
		{
			name:           "valid json",
			in:             `{"report": "Клієнт питає ціну", "confidence": 85}`,
			wantReport:     "Клієнт питає ціну",
			wantConfidence: 85,
		},
		{
			name:           "string confidence",
			in:             `{"report": "ok", "confidence": "92"}`,
			wantReport:     "ok",
			wantConfidence: 92,
		},
		{
			name:           "missing confidence defaults to neutral",
			in:             `{"report": "ok"}`,
			wantReport:     "ok",
			wantConfidence: 50,
		},
		{
			name:           "null confidence defaults to neutral",
			in:             `{"report": "ok", "confidence": null}`,
			wantReport:     "ok",
			wantConfidence: 50,
		},
		{
			name:           "float confidence truncates",
			in:             `{"report": "ok", "confidence": 87.9}`,
			wantReport:     "ok",
			wantConfidence: 87,
		},
		{
			name:           "json surrounded by prose",
			in:             "Ось результат:\n{\"report\": \"ok\", \"confidence\": 70}\nДякую!",
			wantReport:     "ok",
			wantConfidence: 70,
		},
		{
			name:           "no json degrades to raw text",
			in:             "план недоступний",
			wantReport:     "план недоступний",
			wantConfidence: 0,
		},
		{
			name:           "invalid json degrades to raw text",
			in:             `{'report': 'ok', 'confidence': 85}`,
			wantReport:     `{'report': 'ok', 'confidence': 85}`,
			wantConfidence: 0,
		},
		{
			name:           "non-numeric confidence degrades to raw text",
			in:             `{"report": "ok", "confidence": "high"}`,
			wantReport:     `{"report": "ok", "confidence": "high"}`,
			wantConfidence: 0,
		},
		{
			name:           "missing report falls back to full text",
			in:             `{"confidence": 64}`,
			wantReport:     `{"confidence": 64}`,
			wantConfidence: 64,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			report, confidence := parseAgentResponse(tc.in)
			if report != tc.wantReport {
				t.Fatalf("report = %q, want %q", report, tc.wantReport)
			}
			if confidence != tc.wantConfidence {
				t.Fatalf("confidence = %d, want %d", confidence, tc.wantConfidence)
			}
		})
	}
}

type fakeClient struct {
	fn func(req llm.Request) (llm.Result, error)
}

func (f *fakeClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	return f.fn(req)
}

func TestModelAgentBuildsPrompt(t *testing.T) {
	t.Parallel()

	var got llm.Request
	client := &fakeClient{fn: func(req llm.Request) (llm.Result, error) {
		got = req
		return llm.Result{Text: `{"report": "ok", "confidence": 77}`}, nil
	}}

	agent := &ModelAgent{Client: client, Model: "sonar", Temperature: 0.2}
	h := chat.History{
		ChatID:   10,
		Title:    "Client A",
		Messages: []chat.Message{{Text: "Скільки коштує сайт?"}},
	}
	res, err := agent.Analyze(context.Background(), "Ти — бізнес-аналітик.", h)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Confidence != 77 || res.Report != "ok" {
		t.Fatalf("Analyze() = %+v", res)
	}

	if got.Model != "sonar" {
		t.Fatalf("request model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	user := got.Messages[1].Content
	if !strings.Contains(user, "ЧАТ: Client A") || !strings.Contains(user, "ТЕКСТ:\nСкільки коштує сайт?") {
		t.Fatalf("user prompt missing chat context: %q", user)
	}
	if !strings.Contains(user, "поверни JSON") {
		t.Fatalf("user prompt missing JSON instruction: %q", user)
	}
	if temp, ok := got.Parameters["temperature"].(float64); !ok || temp != 0.2 {
		t.Fatalf("temperature parameter = %v", got.Parameters["temperature"])
	}
}

type stubAgent struct {
	name string
	res  Result
	err  error
}

func (s *stubAgent) Name() string { return s.name }
func (s *stubAgent) Analyze(ctx context.Context, instructions string, h chat.History) (Result, error) {
	return s.res, s.err
}

func TestConsensusPicksHighestConfidence(t *testing.T) {
	t.Parallel()

	c := &Consensus{Agents: []Agent{
		&stubAgent{name: "a", res: Result{Report: "low", Confidence: 40}},
		&stubAgent{name: "b", res: Result{Report: "high", Confidence: 90}},
		&stubAgent{name: "c", res: Result{Report: "mid", Confidence: 70}},
	}}
	res, err := c.Analyze(context.Background(), "", chat.History{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Report != "high" || res.Confidence != 90 {
		t.Fatalf("Analyze() = %+v, want high/90", res)
	}
}

func TestConsensusSurvivesPartialFailure(t *testing.T) {
	t.Parallel()

	c := &Consensus{Agents: []Agent{
		&stubAgent{name: "down", err: errors.New("unreachable")},
		&stubAgent{name: "up", res: Result{Report: "ok", Confidence: 60}},
	}}
	res, err := c.Analyze(context.Background(), "", chat.History{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Confidence != 60 {
		t.Fatalf("Analyze() = %+v, want confidence 60", res)
	}
}

func TestConsensusAllAgentsFailed(t *testing.T) {
	t.Parallel()

	c := &Consensus{Agents: []Agent{
		&stubAgent{name: "down", err: errors.New("unreachable")},
	}}
	if _, err := c.Analyze(context.Background(), "", chat.History{}); err == nil {
		t.Fatalf("Analyze() expected error when every agent fails")
	}
}

func TestConsensusZeroConfidenceResultIsUsable(t *testing.T) {
	t.Parallel()

	c := &Consensus{Agents: []Agent{
		&stubAgent{name: "a", res: Result{Report: "raw text", Confidence: 0}},
	}}
	res, err := c.Analyze(context.Background(), "", chat.History{})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Confidence != 0 || res.Report != "raw text" {
		t.Fatalf("Analyze() = %+v", res)
	}
}
