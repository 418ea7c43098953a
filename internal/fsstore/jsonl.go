package fsstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// JSONLWriter is an append-only line log with size-based rotation,
// backing the audit trail and the per-chat message logs. Safe for
// concurrent use.
type JSONLWriter struct {
	path string
	opts JSONLOptions

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	size   int64
	closed bool

	now func() time.Time
}

func NewJSONLWriter(path string, opts JSONLOptions) (*JSONLWriter, error) {
	target, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	w := &JSONLWriter{
		path: target,
		opts: normalizeJSONLOptions(opts),
		now:  time.Now,
	}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// AppendJSON writes v as one JSON line.
func (w *JSONLWriter) AppendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: jsonl encode %s: %v", ErrEncodeFailed, w.path, err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(data)
}

// AppendLine writes one raw line. Embedded newlines are rejected so a
// single Append stays a single record.
func (w *JSONLWriter) AppendLine(line string) error {
	if strings.ContainsRune(line, '\n') {
		return fmt.Errorf("%w: line contains newline", ErrInvalidPath)
	}
	line = strings.TrimSuffix(line, "\r")
	data := append([]byte(line), '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLocked(data)
}

func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		w.writer = nil
		w.size = 0
		return err
	}
	return nil
}

func (w *JSONLWriter) writeLocked(data []byte) error {
	if w.closed {
		return fmt.Errorf("jsonl writer closed")
	}
	if err := w.rotateLocked(int64(len(data))); err != nil {
		return err
	}
	n, err := w.writer.Write(data)
	if err != nil {
		return err
	}
	w.size += int64(n)
	if w.opts.FlushEachWrite || w.opts.SyncEachWrite {
		if err := w.writer.Flush(); err != nil {
			return err
		}
	}
	if w.opts.SyncEachWrite {
		if err := w.file.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// rotateLocked archives the live file when the incoming record would
// push it past the cap, then reopens a fresh one.
func (w *JSONLWriter) rotateLocked(incomingBytes int64) error {
	if w.opts.RotateMaxBytes <= 0 {
		return nil
	}
	if w.size+incomingBytes <= w.opts.RotateMaxBytes {
		return nil
	}
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	if err := w.archiveLocked(); err != nil {
		return err
	}
	w.file = nil
	w.writer = nil
	w.size = 0
	return w.openLocked()
}

// archiveLocked renames the live file to a timestamped sibling,
// suffixing a counter when two rotations land in the same second.
func (w *JSONLWriter) archiveLocked() error {
	ts := w.now().UTC().Format("20060102T150405Z")
	base := fmt.Sprintf("%s.%s", w.path, ts)
	archived := base
	for i := 0; ; i++ {
		if i > 0 {
			archived = fmt.Sprintf("%s.%d", base, i)
		}
		if _, err := os.Stat(archived); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.Rename(w.path, archived); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		return nil
	}
}

func (w *JSONLWriter) openLocked() error {
	if err := ensureDir(filepath.Dir(w.path), w.opts.DirPerm); err != nil {
		return err
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, w.opts.FilePerm)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.writer = bufio.NewWriterSize(file, 64*1024)
	w.size = info.Size()
	return nil
}
