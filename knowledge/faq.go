package knowledge

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
)

// ErrNoPatterns means the library is empty and there is nothing to
// digest yet.
var ErrNoPatterns = errors.New("knowledge: no successful patterns available yet")

const examplesPerTopic = 5

// Topic order is fixed so regenerated digests diff cleanly.
var topicOrder = []string{
	"Pricing & Cost",
	"Meetings & Calls",
	"Timeline & Deadlines",
	"Services & Work",
	"General Questions",
	"Other",
}

var topicKeywords = map[string][]string{
	"Pricing & Cost":       {"ціна", "price", "pricing", "вартість", "скільки"},
	"Meetings & Calls":     {"зустріч", "meeting", "call", "дзвінок"},
	"Timeline & Deadlines": {"термін", "deadline", "коли", "when", "час"},
	"Services & Work":      {"послуг", "service", "робота", "work"},
	"General Questions":    {"питання", "question", "допомога", "help"},
}

// FAQResult summarizes one digest generation.
type FAQResult struct {
	Path          string
	TotalPatterns int
	Topics        int
}

// GenerateFAQ groups the library by topic and writes the digest to the
// given path, typically the dynamic-instructions file.
func (s *Store) GenerateFAQ(outputPath string) (FAQResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doc.Replies) == 0 {
		return FAQResult{}, ErrNoPatterns
	}

	topics := groupByTopics(s.doc.Replies)
	content := s.formatFAQ(topics)
	if err := fsstore.WriteTextAtomic(outputPath, content, fsstore.FileOptions{}); err != nil {
		return FAQResult{}, fmt.Errorf("write faq: %w", err)
	}

	res := FAQResult{
		Path:          outputPath,
		TotalPatterns: len(s.doc.Replies),
		Topics:        len(topics),
	}
	slog.Info("knowledge_faq_generated", "path", outputPath, "patterns", res.TotalPatterns, "topics", res.Topics)
	return res, nil
}

func groupByTopics(replies []Pattern) map[string][]Pattern {
	topics := make(map[string][]Pattern)
	for _, r := range replies {
		topics[classify(r.ClientQuestion)] = append(topics[classify(r.ClientQuestion)], r)
	}
	return topics
}

func classify(question string) string {
	q := strings.ToLower(question)
	for _, topic := range topicOrder[:len(topicOrder)-1] {
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(q, kw) {
				return topic
			}
		}
	}
	return "Other"
}

func (s *Store) formatFAQ(topics map[string][]Pattern) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("DYNAMIC INSTRUCTIONS - AI KNOWLEDGE BASE\n")
	b.WriteString("Generated: " + s.now().Format("2006-01-02 15:04") + "\n")
	fmt.Fprintf(&b, "Total Successful Patterns: %d\n", len(s.doc.Replies))
	b.WriteString(rule + "\n\n")
	b.WriteString("INSTRUCTIONS FOR AI:\n")
	b.WriteString("Below are SUCCESSFUL reply patterns approved by the owner.\n")
	b.WriteString("Use these as examples for tone, style, and content when generating responses.\n")
	b.WriteString("Match the owner's communication style based on these patterns.\n\n")
	b.WriteString(rule + "\n")

	for _, topic := range topicOrder {
		replies, ok := topics[topic]
		if !ok {
			continue
		}
		sort.SliceStable(replies, func(a, b int) bool {
			return replies[a].Timestamp.After(replies[b].Timestamp)
		})

		fmt.Fprintf(&b, "\n\n## TOPIC: %s\n", strings.ToUpper(topic))
		fmt.Fprintf(&b, "Examples: %d\n", len(replies))
		b.WriteString(strings.Repeat("-", 80) + "\n")

		n := len(replies)
		if n > examplesPerTopic {
			n = examplesPerTopic
		}
		for i := 0; i < n; i++ {
			r := replies[i]
			fmt.Fprintf(&b, "\n### Example %d:\n", i+1)
			fmt.Fprintf(&b, "Client: %s\n", r.ChatTitle)
			fmt.Fprintf(&b, "Date: %s\n", r.Timestamp.Format("2006-01-02"))
			fmt.Fprintf(&b, "Confidence: %d%%\n", r.Confidence)
			fmt.Fprintf(&b, "Used: %d times\n\n", r.UsedCount)
			b.WriteString("CLIENT QUESTION:\n")
			fmt.Fprintf(&b, "%q\n\n", r.ClientQuestion)
			b.WriteString("APPROVED RESPONSE:\n")
			fmt.Fprintf(&b, "%q\n\n", r.ApprovedResponse)
		}
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("END OF DYNAMIC INSTRUCTIONS\n")
	b.WriteString(rule + "\n")
	return b.String()
}
