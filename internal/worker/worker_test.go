package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStartHandlesJobs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := make(chan int, 4)
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	Start(StartOptions[int]{
		Ctx:  ctx,
		Sem:  make(chan struct{}, 1),
		Jobs: jobs,
		Handle: func(ctx context.Context, job int) {
			mu.Lock()
			got = append(got, job)
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
		},
	})

	for _, j := range []int{1, 2, 3} {
		if err := Enqueue(ctx, ctx, jobs, j); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", j, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs not handled in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("handled jobs = %v, want [1 2 3]", got)
	}
}

func TestEnqueueCanceledContext(t *testing.T) {
	t.Parallel()

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make(chan int)
	if err := Enqueue(ctx, workersCtx, jobs, 1); err == nil {
		t.Fatalf("Enqueue() expected error on canceled context")
	}
}

func TestKeyedPoolOrdersJobsPerKey(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	perKey := make(map[string][]int)
	total := 0
	done := make(chan struct{})

	pool := NewKeyedPool(ctx, 4, 8, func(ctx context.Context, key string, job int) {
		mu.Lock()
		perKey[key] = append(perKey[key], job)
		total++
		if total == 6 {
			close(done)
		}
		mu.Unlock()
	})

	for i := 1; i <= 3; i++ {
		if err := pool.Enqueue(ctx, "a", i); err != nil {
			t.Fatalf("Enqueue(a, %d) error = %v", i, err)
		}
		if err := pool.Enqueue(ctx, "b", i*10); err != nil {
			t.Fatalf("Enqueue(b, %d) error = %v", i*10, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs not handled in time")
	}

	mu.Lock()
	defer mu.Unlock()
	a := perKey["a"]
	if len(a) != 3 || a[0] != 1 || a[1] != 2 || a[2] != 3 {
		t.Fatalf("lane a jobs = %v, want [1 2 3]", a)
	}
	b := perKey["b"]
	if len(b) != 3 || b[0] != 10 || b[1] != 20 || b[2] != 30 {
		t.Fatalf("lane b jobs = %v, want [10 20 30]", b)
	}
}
