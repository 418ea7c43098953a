// Package reply generates the client-facing answer from the analysis
// report, business data and past approved patterns, and gates sending
// on the owner's working hours.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/IlliaSobcko/AIBI-Project/knowledge"
	"github.com/IlliaSobcko/AIBI-Project/llm"
)

// UnreadableFilesText is sent (or drafted) verbatim when the client's
// message carries an attachment the assistant cannot read. The model
// is never consulted in that case.
const UnreadableFilesText = "Клієнт надіслав файл, який я не можу прочитати, тому я не відповів автоматично."

const (
	defaultMinConfidence = 70
	defaultTemperature   = 0.3
	defaultHistoryTail   = 1000
	defaultExampleLimit  = 3
)

// Examples supplies past approved patterns for prompt injection.
type Examples interface {
	RelevantExamples(clientQuestion, chatTitle string, limit int) []knowledge.Pattern
}

// Generated is one produced answer. Confidence is the generator's own
// self-assessment, a second gate independent of the decision engine.
type Generated struct {
	Text       string
	Confidence int
	Reasoning  string
}

type Generator struct {
	Client       llm.Client
	Examples     Examples
	Model        string
	Temperature  float64
	BusinessData string

	// MinConfidence is the floor below which a generated answer must
	// not be auto-sent.
	MinConfidence int
	HistoryTail   int
	ExampleLimit  int
}

func New(client llm.Client, examples Examples) *Generator {
	return &Generator{
		Client:        client,
		Examples:      examples,
		Temperature:   defaultTemperature,
		MinConfidence: defaultMinConfidence,
		HistoryTail:   defaultHistoryTail,
		ExampleLimit:  defaultExampleLimit,
	}
}

// FromViper builds the generator from the reply.* and llm.* keys.
func FromViper(client llm.Client, examples Examples, businessData string) *Generator {
	g := New(client, examples)
	g.Model = viper.GetString("llm.model")
	g.BusinessData = businessData
	if v := viper.GetFloat64("reply.temperature"); v > 0 {
		g.Temperature = v
	}
	if v := viper.GetInt("reply.min_confidence"); v > 0 {
		g.MinConfidence = v
	}
	if v := viper.GetInt("reply.history_tail"); v > 0 {
		g.HistoryTail = v
	}
	return g
}

// Generate produces an answer for one conversation unit. A unit with
// unreadable attachments gets the fixed text and confidence 0 without
// a model call. Model or parse failures degrade to an empty answer
// with confidence 0; Generate itself fails only on a dead client.
func (g *Generator) Generate(ctx context.Context, chatTitle, messageHistory, analysisReport, instructions string, hasUnreadableFiles bool) (Generated, error) {
	if hasUnreadableFiles {
		slog.Info("reply_unreadable_files", "chat_title", chatTitle)
		return Generated{Text: UnreadableFilesText, Confidence: 0, Reasoning: "unreadable files"}, nil
	}

	req := llm.Request{
		Model: g.Model,
		Messages: []llm.Message{
			llm.System("Ти - AI асистент для складання бізнес-відповідей."),
			llm.User(g.prompt(chatTitle, messageHistory, analysisReport, instructions)),
		},
		Parameters: map[string]any{"temperature": g.temperature()},
	}
	res, err := g.Client.Chat(ctx, req)
	if err != nil {
		slog.Warn("reply_generation_failed", "chat_title", chatTitle, "error", err.Error())
		return Generated{}, fmt.Errorf("generate reply: %w", err)
	}

	out := parseGenerated(res.Text)
	slog.Info("reply_generated", "chat_title", chatTitle, "confidence", out.Confidence, "length", len(out.Text))
	return out, nil
}

func (g *Generator) temperature() float64 {
	if g.Temperature > 0 {
		return g.Temperature
	}
	return defaultTemperature
}

func (g *Generator) prompt(chatTitle, messageHistory, analysisReport, instructions string) string {
	var b strings.Builder
	b.WriteString("Ти - бізнес-асистент. На основі аналізу переписки та бізнес-даних, склади КОРОТКУ (2-4 речення) професійну відповідь клієнту.\n\n")

	b.WriteString("БІЗНЕС-ДАНІ:\n")
	b.WriteString(g.BusinessData)
	b.WriteString("\n\n")

	if strings.TrimSpace(instructions) != "" {
		b.WriteString("ІНСТРУКЦІЇ:\n")
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}

	if g.Examples != nil {
		if examples := g.Examples.RelevantExamples(messageHistory, chatTitle, g.exampleLimit()); len(examples) > 0 {
			b.WriteString("УСПІШНІ ПРИКЛАДИ (відповідай у такому ж стилі):\n")
			for i, ex := range examples {
				fmt.Fprintf(&b, "%d. Питання: %s\n   Відповідь: %s\n", i+1, ex.ClientQuestion, ex.ApprovedResponse)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "ЧАТ: %s\n\n", chatTitle)
	b.WriteString("АНАЛІЗ ПЕРЕПИСКИ:\n")
	b.WriteString(analysisReport)
	b.WriteString("\n\n")
	b.WriteString("ОСТАННЯ ЧАСТИНА ІСТОРІЇ:\n")
	b.WriteString(tail(messageHistory, g.historyTail()))
	b.WriteString("\n\n")

	b.WriteString(`ПРАВИЛА:
1. Відповідь має бути природною, не копіюй текст з бізнес-даних дослівно
2. Якщо клієнт запитує ціну - вкажи орієнтовну з бізнес-даних
3. Якщо запитує термін - вкажи орієнтовний термін
4. Завжди пропонуй наступний крок (дзвінок, зустріч, більше інфо)
5. Тон: професійний, дружній, не офіційний
6. Максимум 2-4 речення

Поверни JSON:
{
    "reply": "текст відповіді тут",
    "confidence": 0-100,
    "reasoning": "чому обрано такий варіант"
}`)
	return b.String()
}

func (g *Generator) historyTail() int {
	if g.HistoryTail > 0 {
		return g.HistoryTail
	}
	return defaultHistoryTail
}

func (g *Generator) exampleLimit() int {
	if g.ExampleLimit > 0 {
		return g.ExampleLimit
	}
	return defaultExampleLimit
}

// tail keeps the last n runes so a mid-character cut cannot produce
// invalid UTF-8 in the prompt.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// parseGenerated extracts {reply, confidence, reasoning} from a model
// answer. Anything unparseable degrades to the empty answer.
func parseGenerated(text string) Generated {
	raw := jsonSpan(text)
	if raw == "" || !gjson.Valid(raw) {
		slog.Warn("reply_parse_failed")
		return Generated{Reasoning: "parse error: no JSON object in model output"}
	}

	out := Generated{
		Text:      gjson.Get(raw, "reply").String(),
		Reasoning: gjson.Get(raw, "reasoning").String(),
	}
	conf := gjson.Get(raw, "confidence")
	switch conf.Type {
	case gjson.String:
		v, err := strconv.Atoi(strings.TrimSpace(conf.Str))
		if err != nil {
			slog.Warn("reply_confidence_not_numeric", "value", conf.Str)
			return Generated{Reasoning: "parse error: non-numeric confidence"}
		}
		out.Confidence = v
	default:
		out.Confidence = int(conf.Int())
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 100 {
		out.Confidence = 100
	}
	return out
}

// jsonSpan returns the outermost {...} span, so fenced or prefixed
// model output still parses.
func jsonSpan(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
