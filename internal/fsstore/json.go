package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ReadJSON decodes path into out. A missing or empty file reports
// found=false without an error, so callers can treat absence as the
// zero state.
func ReadJSON(path string, out any) (bool, error) {
	target, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read json %s: %w", target, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrDecodeFailed, target, err)
	}
	return true, nil
}

// WriteJSONAtomic writes v as indented JSON. Indented because the
// state files double as something an operator can read and hand-edit.
func WriteJSONAtomic(path string, v any, opts FileOptions) error {
	target, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrEncodeFailed, target, err)
	}
	data = append(data, '\n')
	return writeAtomic(target, data, opts)
}
