package reply

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/IlliaSobcko/AIBI-Project/knowledge"
	"github.com/IlliaSobcko/AIBI-Project/llm"
)

type fakeClient struct {
	response string
	err      error
	lastReq  llm.Request
	calls    int
}

func (f *fakeClient) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.response}, nil
}

type fakeExamples struct {
	patterns []knowledge.Pattern
}

func (f *fakeExamples) RelevantExamples(string, string, int) []knowledge.Pattern {
	return f.patterns
}

func TestGenerateUnreadableFilesSkipsModel(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: `{"reply": "should not be used", "confidence": 99}`}
	g := New(client, nil)

	got, err := g.Generate(context.Background(), "Client", "history", "report", "", true)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Text != UnreadableFilesText {
		t.Fatalf("Text = %q, want the fixed unreadable-files text", got.Text)
	}
	if got.Confidence != 0 {
		t.Fatalf("Confidence = %d, want 0", got.Confidence)
	}
	if client.calls != 0 {
		t.Fatalf("model calls = %d, want 0", client.calls)
	}
}

func TestGenerateParsesModelJSON(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: `Here you go:
{"reply": "Лендінг від $500. Зателефонуємо завтра?", "confidence": 85, "reasoning": "price question"}`}
	g := New(client, nil)
	g.BusinessData = "Лендінг: $500"

	got, err := g.Generate(context.Background(), "Client", "Скільки коштує лендінг?", "report", "", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Confidence != 85 {
		t.Fatalf("Confidence = %d, want 85", got.Confidence)
	}
	if !strings.Contains(got.Text, "Лендінг") {
		t.Fatalf("Text = %q, want the parsed reply", got.Text)
	}
	if got.Reasoning != "price question" {
		t.Fatalf("Reasoning = %q, want %q", got.Reasoning, "price question")
	}
}

func TestGenerateParseDegradation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		response string
	}{
		{"no json", "I cannot answer that."},
		{"broken json", `{"reply": "x", "confidence": }`},
		{"string confidence non-numeric", `{"reply": "x", "confidence": "high"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := New(&fakeClient{response: tc.response}, nil)
			got, err := g.Generate(context.Background(), "Client", "history", "report", "", false)
			if err != nil {
				t.Fatalf("Generate() error = %v, want degradation not failure", err)
			}
			if got.Text != "" || got.Confidence != 0 {
				t.Fatalf("Generate() = %+v, want empty text with confidence 0", got)
			}
			if !strings.Contains(got.Reasoning, "parse error") {
				t.Fatalf("Reasoning = %q, want a parse error note", got.Reasoning)
			}
		})
	}
}

func TestGenerateStringConfidence(t *testing.T) {
	t.Parallel()

	g := New(&fakeClient{response: `{"reply": "ok", "confidence": "72"}`}, nil)
	got, err := g.Generate(context.Background(), "Client", "h", "r", "", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Confidence != 72 {
		t.Fatalf("Confidence = %d, want 72", got.Confidence)
	}
}

func TestGenerateClientError(t *testing.T) {
	t.Parallel()

	g := New(&fakeClient{err: errors.New("connection refused")}, nil)
	if _, err := g.Generate(context.Background(), "Client", "h", "r", "", false); err == nil {
		t.Fatalf("Generate() error = nil, want transport failure surfaced")
	}
}

func TestPromptEmbedsContext(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: `{"reply": "ok", "confidence": 80}`}
	g := New(client, &fakeExamples{patterns: []knowledge.Pattern{
		{ClientQuestion: "Скільки коштує сайт?", ApprovedResponse: "Від $500."},
	}})
	g.BusinessData = "Компанія: AIBI Solutions"

	history := strings.Repeat("a", 2000) + "ОСТАННЄ ПОВІДОМЛЕННЯ"
	if _, err := g.Generate(context.Background(), "Client X", history, "ЗВІТ-ТЕКСТ", "Відповідай коротко", false); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	prompt := client.lastReq.Messages[1].Content
	for _, want := range []string{
		"AIBI Solutions",
		"Client X",
		"ЗВІТ-ТЕКСТ",
		"Відповідай коротко",
		"Скільки коштує сайт?",
		"ОСТАННЄ ПОВІДОМЛЕННЯ",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	// Only the tail of a long history makes it in.
	if strings.Contains(prompt, strings.Repeat("a", 1500)) {
		t.Fatalf("prompt contains more history than the configured tail")
	}
	if temp, ok := client.lastReq.Parameters["temperature"].(float64); !ok || temp != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", client.lastReq.Parameters["temperature"])
	}
}
