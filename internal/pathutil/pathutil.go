package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

const defaultStateDirName = ".aibi"

// ExpandHomePath replaces a leading "~" with the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ResolveStateDir resolves the root state directory. An empty value falls
// back to ~/.aibi; a relative value is kept relative to the working dir.
func ResolveStateDir(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return defaultStateDirName
		}
		return filepath.Join(home, defaultStateDirName)
	}
	return filepath.Clean(ExpandHomePath(raw))
}

// ResolveStateChild resolves a child path under the state dir. When child is
// empty the fallback name is used; an absolute child is returned as-is.
func ResolveStateChild(stateDir, child, fallback string) string {
	child = strings.TrimSpace(child)
	if child == "" {
		child = fallback
	}
	child = ExpandHomePath(child)
	if filepath.IsAbs(child) {
		return filepath.Clean(child)
	}
	return filepath.Join(ResolveStateDir(stateDir), child)
}
