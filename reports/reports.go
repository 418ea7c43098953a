// Package reports writes the per-conversation analysis artifacts and
// scans them for the owner's analytics summary. Header lines and
// outcome markers are stable strings the scan depends on.
package reports

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
)

// Outcome markers appended to report files. The analytics scan matches
// on these exact strings.
const (
	MarkerAutoReplySent   = "[AUTO-REPLY SENT]"
	MarkerAutoReplyFailed = "[AUTO-REPLY FAILED]"
	MarkerDraft           = "[DRAFT FOR REVIEW]"
	MarkerDraftUnreadable = "[DRAFT FOR REVIEW - UNREADABLE FILES]"
)

const (
	headerTitle      = "ЗВІТ ПО ЧАТУ: "
	headerDate       = "ДАТА: "
	headerConfidence = "ВПЕВНЕНІСТЬ ШІ: "
	headerRule       = "=============================="
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]+`)

// SanitizeFilename makes a chat title safe as a file name: forbidden
// characters collapse to underscores, length capped at 100.
func SanitizeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "_")
	name = strings.TrimSpace(name)
	if name == "" {
		name = "chat"
	}
	r := []rune(name)
	if len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

// Writer persists report files into one directory.
type Writer struct {
	dir string

	// Now is swappable in tests.
	Now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// FromViper places reports under the configured reports directory.
func FromViper() *Writer {
	return NewWriter(statepaths.ReportsDir())
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Path returns the report file for a chat title.
func (w *Writer) Path(chatTitle string) string {
	return filepath.Join(w.dir, SanitizeFilename(chatTitle)+".txt")
}

// Write rewrites the chat's report file with the header and body. The
// previous cycle's file for the same title is replaced.
func (w *Writer) Write(chatTitle, body string, confidence int) (string, error) {
	content := fmt.Sprintf("%s%s\n%s%s\n%s%d%%\n%s\n%s\n",
		headerTitle, chatTitle,
		headerDate, w.now().Format("2006-01-02 15:04"),
		headerConfidence, confidence,
		headerRule,
		body)

	path := w.Path(chatTitle)
	if err := fsstore.WriteTextAtomic(path, content, fsstore.FileOptions{}); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	slog.Debug("report_written", "path", path, "confidence", confidence)
	return path, nil
}

func (w *Writer) appendBlock(chatTitle, block string) error {
	if err := fsstore.AppendText(w.Path(chatTitle), "\n"+block+"\n", fsstore.FileOptions{}); err != nil {
		return fmt.Errorf("append report outcome: %w", err)
	}
	return nil
}

// AppendAutoReplySent records a delivered automatic answer.
func (w *Writer) AppendAutoReplySent(chatTitle, message, sendMethod string, confidence int) error {
	return w.appendBlock(chatTitle, fmt.Sprintf("%s\nReply Confidence: %d%%\nSend Method: %s\nMessage: %s",
		MarkerAutoReplySent, confidence, sendMethod, message))
}

// AppendAutoReplyFailed records an answer no transport could deliver.
func (w *Writer) AppendAutoReplyFailed(chatTitle, message string, confidence int) error {
	return w.appendBlock(chatTitle, fmt.Sprintf("%s\nReply Confidence: %d%%\nReason: all transports failed\nMessage: %s",
		MarkerAutoReplyFailed, confidence, message))
}

// AppendDraft records an answer parked for the owner's review.
func (w *Writer) AppendDraft(chatTitle, draft string, confidence int) error {
	return w.appendBlock(chatTitle, fmt.Sprintf("%s\nReply Confidence: %d%%\nDraft: %s",
		MarkerDraft, confidence, draft))
}

// AppendDraftUnreadable records the forced-review outcome for units
// with unreadable attachments.
func (w *Writer) AppendDraftUnreadable(chatTitle, draft string, confidence int) error {
	return w.appendBlock(chatTitle, fmt.Sprintf("%s\nReply Confidence: %d%%\nReason: Message contains unreadable file\nDraft: %s",
		MarkerDraftUnreadable, confidence, draft))
}
