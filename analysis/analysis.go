// Package analysis turns a conversation unit into a business report
// with a model-reported confidence. Several agents can be consulted in
// parallel; the most confident answer wins.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/IlliaSobcko/AIBI-Project/chat"
	"github.com/IlliaSobcko/AIBI-Project/llm"
)

type Result struct {
	Report     string
	Confidence int
}

type Agent interface {
	Name() string
	Analyze(ctx context.Context, instructions string, h chat.History) (Result, error)
}

// ModelAgent asks one chat model for a report and parses the JSON it
// was instructed to produce.
type ModelAgent struct {
	AgentName   string
	Client      llm.Client
	Model       string
	Temperature float64
}

func (a *ModelAgent) Name() string {
	if strings.TrimSpace(a.AgentName) != "" {
		return a.AgentName
	}
	return "model"
}

func (a *ModelAgent) Analyze(ctx context.Context, instructions string, h chat.History) (Result, error) {
	prompt := fmt.Sprintf("ЧАТ: %s\nТЕКСТ:\n%s", h.Title, h.Text())
	req := llm.Request{
		Model: a.Model,
		Messages: []llm.Message{
			llm.System(instructions),
			llm.User("Проаналізуй і поверни JSON {'report': '...', 'confidence': 0-100}. \n\n" + prompt),
		},
		Parameters: map[string]any{"temperature": a.Temperature},
	}
	res, err := a.Client.Chat(ctx, req)
	if err != nil {
		return Result{}, err
	}
	report, confidence := parseAgentResponse(res.Text)
	return Result{Report: report, Confidence: confidence}, nil
}

// parseAgentResponse extracts {report, confidence} from a model reply.
// A reply without parseable JSON degrades to the raw text with
// confidence 0. A JSON object without a confidence field counts as the
// neutral 50.
func parseAgentResponse(text string) (string, int) {
	raw := firstJSONObject(text)
	if raw == "" {
		slog.Warn("analysis_no_json_in_response")
		return text, 0
	}
	if !gjson.Valid(raw) {
		slog.Warn("analysis_invalid_json_in_response")
		return text, 0
	}

	confidence := 50
	conf := gjson.Get(raw, "confidence")
	switch conf.Type {
	case gjson.Null:
		confidence = 50
	case gjson.String:
		v, err := strconv.Atoi(strings.TrimSpace(conf.Str))
		if err != nil {
			slog.Warn("analysis_confidence_not_numeric", "value", conf.Str)
			return text, 0
		}
		confidence = v
	default:
		confidence = int(conf.Int())
	}

	report := text
	if rep := gjson.Get(raw, "report"); rep.Exists() {
		report = rep.String()
	}
	return report, confidence
}

// firstJSONObject returns the first non-greedy {...} span, mirroring a
// minimal brace scan: from the first '{' to the first '}' after it.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(text[start:], '}')
	if end < 0 {
		return ""
	}
	return text[start : start+end+1]
}

// Consensus fans the same unit out to every agent and keeps the answer
// with the highest confidence. Earlier agents win ties.
type Consensus struct {
	Agents []Agent
}

func (c *Consensus) Name() string { return "consensus" }

func (c *Consensus) Analyze(ctx context.Context, instructions string, h chat.History) (Result, error) {
	if len(c.Agents) == 0 {
		return Result{}, fmt.Errorf("analysis: no agents configured")
	}

	type outcome struct {
		res Result
		err error
	}
	outcomes := make([]outcome, len(c.Agents))

	var wg sync.WaitGroup
	for i, agent := range c.Agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			res, err := agent.Analyze(ctx, instructions, h)
			outcomes[i] = outcome{res: res, err: err}
		}(i, agent)
	}
	wg.Wait()

	best := Result{Confidence: -1}
	var lastErr error
	for i, out := range outcomes {
		if out.err != nil {
			lastErr = out.err
			slog.Warn("analysis_agent_failed", "agent", c.Agents[i].Name(), "error", out.err.Error())
			continue
		}
		if out.res.Confidence > best.Confidence {
			best = out.res
		}
	}
	if best.Confidence < 0 {
		return Result{}, fmt.Errorf("analysis: all agents failed: %w", lastErr)
	}
	return best, nil
}

// FromViper builds the configured consensus over a shared client.
func FromViper(client llm.Client) *Consensus {
	count := viper.GetInt("analysis.agents")
	if count <= 0 {
		count = 1
	}
	model := viper.GetString("llm.model")
	temperature := viper.GetFloat64("analysis.temperature")

	agents := make([]Agent, 0, count)
	for i := 0; i < count; i++ {
		name := "sonar"
		if count > 1 {
			name = fmt.Sprintf("sonar-%d", i+1)
		}
		agents = append(agents, &ModelAgent{
			AgentName:   name,
			Client:      client,
			Model:       model,
			Temperature: temperature,
		})
	}
	return &Consensus{Agents: agents}
}
