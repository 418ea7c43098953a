// Package instructions manages the analyst prompt: a static file the
// owner edits over Telegram and a dynamic file regenerated from the
// knowledge store. Every destructive change is preceded by a
// timestamped backup.
package instructions

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/IlliaSobcko/AIBI-Project/internal/fsstore"
	"github.com/IlliaSobcko/AIBI-Project/internal/markdown"
	"github.com/IlliaSobcko/AIBI-Project/internal/statepaths"
)

// Update modes accepted from the owner.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
	ModePrepend = "prepend"
)

const (
	// minUpdateLen guards against fat-fingered one-word replacements.
	minUpdateLen = 50

	backupTimeLayout = "20060102_150405"
)

var (
	ErrTooShort       = errors.New("instructions: content too short (minimum 50 characters)")
	ErrUnknownMode    = errors.New("instructions: unknown update mode")
	ErrBackupNotFound = errors.New("instructions: backup not found")
)

// DefaultStatic seeds a fresh installation so the analyzer always has
// something to work from.
const DefaultStatic = `# Business Assistant Instructions

You analyze client conversations for a service business and produce a
short report with a confidence score.

- Reply in the language the client writes in.
- Be concrete about prices, dates and deliverables.
- When unsure, say so and lower your confidence.
`

// Manager owns the static and dynamic instruction files.
type Manager struct {
	StaticPath  string
	DynamicPath string
	BackupDir   string

	// Now is swappable in tests.
	Now func() time.Time
}

func NewManager(staticPath, dynamicPath, backupDir string) *Manager {
	return &Manager{
		StaticPath:  staticPath,
		DynamicPath: dynamicPath,
		BackupDir:   backupDir,
	}
}

// FromViper resolves the configured state paths.
func FromViper() *Manager {
	return NewManager(
		statepaths.InstructionsPath(),
		statepaths.DynamicInstructionsPath(),
		statepaths.InstructionBackupsDir(),
	)
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Static returns the owner-maintained instructions, empty when missing.
func (m *Manager) Static() string {
	text, found, err := fsstore.ReadText(m.StaticPath)
	if err != nil {
		slog.Warn("instructions_read_failed", "path", m.StaticPath, "error", err.Error())
		return ""
	}
	if !found {
		return ""
	}
	return text
}

// Dynamic returns the knowledge-derived instructions, empty when the
// FAQ has never been generated.
func (m *Manager) Dynamic() string {
	text, found, err := fsstore.ReadText(m.DynamicPath)
	if err != nil {
		slog.Warn("instructions_read_failed", "path", m.DynamicPath, "error", err.Error())
		return ""
	}
	if !found {
		return ""
	}
	return text
}

// Combined joins the static and dynamic instructions into the prompt
// the analyzer and the generator consume. Frontmatter blocks are
// stripped; they carry editor metadata, not prompt text.
func (m *Manager) Combined() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(markdown.StripFrontmatter(m.Static())); s != "" {
		parts = append(parts, s)
	}
	if d := strings.TrimSpace(markdown.StripFrontmatter(m.Dynamic())); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n\n")
}

// EnsureDefault creates the starter static file when none exists.
func (m *Manager) EnsureDefault() error {
	_, found, err := fsstore.ReadText(m.StaticPath)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return fsstore.WriteTextAtomic(m.StaticPath, DefaultStatic, fsstore.FileOptions{})
}

// UpdateResult reports what one update did.
type UpdateResult struct {
	Mode       string
	BackupFile string
	Size       int
}

// Update rewrites the static instructions. Append and prepend join the
// new content to the current text with a blank line. The previous
// content is backed up first.
func (m *Manager) Update(content, mode string) (UpdateResult, error) {
	content = strings.TrimSpace(content)
	if len([]rune(content)) < minUpdateLen {
		return UpdateResult{}, ErrTooShort
	}

	current := m.Static()
	var next string
	switch mode {
	case ModeReplace:
		next = content
	case ModeAppend:
		next = content
		if strings.TrimSpace(current) != "" {
			next = strings.TrimRight(current, "\n") + "\n\n" + content
		}
	case ModePrepend:
		next = content
		if strings.TrimSpace(current) != "" {
			next = content + "\n\n" + strings.TrimRight(current, "\n")
		}
	default:
		return UpdateResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	backup := ""
	if strings.TrimSpace(current) != "" {
		name, err := m.backupCurrent(current)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("backup instructions: %w", err)
		}
		backup = name
	}

	if err := fsstore.WriteTextAtomic(m.StaticPath, next+"\n", fsstore.FileOptions{}); err != nil {
		return UpdateResult{}, fmt.Errorf("write instructions: %w", err)
	}
	slog.Info("instructions_updated", "mode", mode, "size", len(next), "backup", backup)
	return UpdateResult{Mode: mode, BackupFile: backup, Size: len([]rune(next))}, nil
}

// ListBackups returns up to limit backup filenames, newest first.
func (m *Manager) ListBackups(limit int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.BackupDir, "instructions_backup_*"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, filepath.Base(p))
	}
	// The timestamp is lexicographically sortable.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// Rollback restores the static instructions from a named backup. The
// displaced content is itself backed up first, so a rollback is always
// reversible.
func (m *Manager) Rollback(backupFilename string) error {
	base := filepath.Base(strings.TrimSpace(backupFilename))
	if base == "" || base == "." || base != backupFilename {
		return fmt.Errorf("instructions: invalid backup name %q", backupFilename)
	}

	content, found, err := fsstore.ReadText(filepath.Join(m.BackupDir, base))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, base)
	}

	if current := m.Static(); strings.TrimSpace(current) != "" {
		if _, err := m.backupCurrent(current); err != nil {
			return fmt.Errorf("backup instructions: %w", err)
		}
	}
	if err := fsstore.WriteTextAtomic(m.StaticPath, content, fsstore.FileOptions{}); err != nil {
		return fmt.Errorf("restore instructions: %w", err)
	}
	slog.Info("instructions_rolled_back", "backup", base)
	return nil
}

func (m *Manager) backupCurrent(content string) (string, error) {
	name := fmt.Sprintf("instructions_backup_%s%s",
		m.now().Format(backupTimeLayout), filepath.Ext(m.StaticPath))
	if err := fsstore.WriteTextAtomic(filepath.Join(m.BackupDir, name), content, fsstore.FileOptions{}); err != nil {
		return "", err
	}
	return name, nil
}
