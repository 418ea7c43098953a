package reports

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// highConfidenceFloor is the analytics cut-off for a "high confidence"
// report.
const highConfidenceFloor = 80

// Summary is the analytics view over every report file.
type Summary struct {
	TotalChats     int
	HighConfidence int
	DraftedReplied int
}

// Scan walks the report directory and tallies the analytics summary.
// Unreadable files are skipped, not fatal.
func (w *Writer) Scan() (Summary, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("scan reports dir %s: %w", w.dir, err)
	}

	var s Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(w.dir, entry.Name()))
		if err != nil {
			slog.Warn("report_scan_read_failed", "file", entry.Name(), "error", err.Error())
			continue
		}
		content := string(data)
		s.TotalChats++

		if conf, ok := extractConfidence(content); ok && conf >= highConfidenceFloor {
			s.HighConfidence++
		}
		if strings.Contains(content, "DRAFT FOR REVIEW") || strings.Contains(content, "AUTO-REPLY SENT") {
			s.DraftedReplied++
		}
	}
	return s, nil
}

func extractConfidence(content string) (int, bool) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, headerConfidence) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, headerConfidence))
		value = strings.TrimSuffix(value, "%")
		conf, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return conf, true
	}
	return 0, false
}

// FormatSummary renders the scan for the reviewer bot.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("[STATS] ANALYTICS REPORT\n\n")
	fmt.Fprintf(&b, "[DATA] Total Chats Processed: %d\n", s.TotalChats)
	fmt.Fprintf(&b, "[OK] High Confidence (>=80%%): %d\n", s.HighConfidence)
	fmt.Fprintf(&b, "[DRAFT] Drafts/Replies: %d\n", s.DraftedReplied)
	return b.String()
}
