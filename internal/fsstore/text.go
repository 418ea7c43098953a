package fsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func ReadText(path string) (string, bool, error) {
	normalizedPath, err := cleanPath(path)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(normalizedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read text %s: %w", normalizedPath, err)
	}
	return string(data), true, nil
}

func WriteTextAtomic(path string, content string, opts FileOptions) error {
	normalizedPath, err := cleanPath(path)
	if err != nil {
		return err
	}
	return writeAtomic(normalizedPath, []byte(content), opts)
}

// AppendText appends content to path, creating the file (and parent
// directory) when missing. Appends are not atomic; callers that need
// isolation should hold a lock around the call.
func AppendText(path string, content string, opts FileOptions) error {
	normalizedPath, err := cleanPath(path)
	if err != nil {
		return err
	}
	opts = normalizeFileOptions(opts)
	if err := ensureDir(filepath.Dir(normalizedPath), opts.DirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(normalizedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, opts.FilePerm)
	if err != nil {
		return fmt.Errorf("open append %s: %w", normalizedPath, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("append text %s: %w", normalizedPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close append %s: %w", normalizedPath, err)
	}
	return nil
}
