package async

import (
	"context"
	"fmt"
	"sync"
)

// Future is the eventual outcome of one background operation: exactly one
// value or one error, delivered once.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// complete settles the future. Later calls are ignored.
func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the outcome is available or ctx ends. Giving up on
// the wait does not stop the operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking; ok is false while pending.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Go runs fn on exec and returns its future immediately. A panic in fn
// settles the future with an error.
func Go[T any](ctx context.Context, exec Executor, fn func(ctx context.Context) (T, error)) *Future[T] {
	return GoWrapped(ctx, exec, nil, fn)
}

// GoWrapped is Go with every failure passed through wrap before it settles
// the future: errors from fn, a context that ended before fn ran, and
// recovered panics. A nil wrap keeps errors as they are.
func GoWrapped[T any](ctx context.Context, exec Executor, wrap func(error) error, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	fail := func(err error) {
		var zero T
		if wrap != nil {
			err = wrap(err)
		}
		f.complete(zero, err)
	}
	exec.Execute(ctx, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				fail(fmt.Errorf("async operation panicked: %v", r))
			}
		}()
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}
		v, err := fn(ctx)
		if err != nil {
			fail(err)
			return
		}
		f.complete(v, nil)
	})
	return f
}

// Then chains a transformation that runs once f succeeds. Errors from f
// skip fn and propagate. fn is only queued on exec after f settled, so a
// bounded pool never holds a slot while waiting.
func Then[T, U any](ctx context.Context, exec Executor, f *Future[T], fn func(ctx context.Context, v T) (U, error)) *Future[U] {
	out := newFuture[U]()
	go func() {
		var zero U
		select {
		case <-f.done:
		case <-ctx.Done():
			out.complete(zero, ctx.Err())
			return
		}
		if f.err != nil {
			out.complete(zero, f.err)
			return
		}
		next := Go(ctx, exec, func(ctx context.Context) (U, error) {
			return fn(ctx, f.value)
		})
		<-next.done
		out.complete(next.value, next.err)
	}()
	return out
}

// Map transforms the value of f without an executor. Use it for cheap
// conversions such as decoding.
func Map[T, U any](f *Future[T], fn func(v T) (U, error)) *Future[U] {
	return Then(context.Background(), Inline, f, func(_ context.Context, v T) (U, error) {
		return fn(v)
	})
}
