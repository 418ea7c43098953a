package fsstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func TestWithLockMutualExclusion(t *testing.T) {
	t.Parallel()

	lockPath, err := BuildLockPath(filepath.Join(t.TempDir(), ".locks"), "knowledge.main")
	if err != nil {
		t.Fatalf("BuildLockPath() error = %v", err)
	}

	const workers = 8
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), lockPath, func() error {
				counter++
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestWithLockNilFn(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "noop.lck")
	if err := WithLock(context.Background(), lockPath, nil); err != nil {
		t.Fatalf("WithLock(nil fn) error = %v", err)
	}
}
