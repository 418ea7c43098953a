package worker

import (
	"context"
	"sync"
)

type StartOptions[J any] struct {
	Ctx    context.Context
	Sem    chan struct{}
	Jobs   <-chan J
	Handle func(context.Context, J)
}

func Start[J any](opts StartOptions[J]) {
	go func() {
		for {
			select {
			case <-opts.Ctx.Done():
				return
			case job, ok := <-opts.Jobs:
				if !ok {
					return
				}
				select {
				case opts.Sem <- struct{}{}:
				case <-opts.Ctx.Done():
					return
				}
				func() {
					defer func() { <-opts.Sem }()
					opts.Handle(opts.Ctx, job)
				}()
			}
		}
	}()
}

func Enqueue[J any](ctx, workersCtx context.Context, jobs chan<- J, job J) error {
	if ctx == nil {
		ctx = workersCtx
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-workersCtx.Done():
		return workersCtx.Err()
	case jobs <- job:
		return nil
	}
}

// KeyedPool keeps one lane per key so jobs sharing a key run in order,
// while a shared semaphore bounds concurrency across lanes.
type KeyedPool[K comparable, J any] struct {
	ctx    context.Context
	sem    chan struct{}
	buffer int
	handle func(context.Context, K, J)

	mu    sync.Mutex
	lanes map[K]chan J
}

func NewKeyedPool[K comparable, J any](ctx context.Context, maxConcurrent, buffer int, handle func(context.Context, K, J)) *KeyedPool[K, J] {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &KeyedPool[K, J]{
		ctx:    ctx,
		sem:    make(chan struct{}, maxConcurrent),
		buffer: buffer,
		handle: handle,
		lanes:  make(map[K]chan J),
	}
}

func (p *KeyedPool[K, J]) Enqueue(ctx context.Context, key K, job J) error {
	p.mu.Lock()
	lane, ok := p.lanes[key]
	if !ok {
		lane = make(chan J, p.buffer)
		p.lanes[key] = lane
		Start(StartOptions[J]{
			Ctx:  p.ctx,
			Sem:  p.sem,
			Jobs: lane,
			Handle: func(ctx context.Context, job J) {
				p.handle(ctx, key, job)
			},
		})
	}
	p.mu.Unlock()
	return Enqueue(ctx, p.ctx, lane, job)
}
