package async

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs tasks in the background. Execute never blocks the caller.
type Executor interface {
	Execute(ctx context.Context, task func(ctx context.Context))
}

type goroutineExecutor struct{}

// Goroutines runs every task on its own goroutine.
var Goroutines Executor = goroutineExecutor{}

func (goroutineExecutor) Execute(ctx context.Context, task func(ctx context.Context)) {
	go task(ctx)
}

// Pool bounds how many tasks run at once. Tasks beyond the bound wait for a
// slot on their own goroutine.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool running at most size tasks concurrently.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Execute queues task. When ctx ends before a slot frees up the task still
// runs, without a slot, so it can observe the cancellation and settle.
func (p *Pool) Execute(ctx context.Context, task func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			task(ctx)
			return
		}
		defer p.sem.Release(1)
		task(ctx)
	}()
}

// Wait blocks until every queued task returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Inline runs tasks on the caller's goroutine. Futures returned through it
// are settled before Go returns, which keeps tests deterministic.
var Inline Executor = inlineExecutor{}

type inlineExecutor struct{}

func (inlineExecutor) Execute(ctx context.Context, task func(ctx context.Context)) {
	task(ctx)
}
