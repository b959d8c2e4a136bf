/*
Package future provides a single-assignment, concurrency-safe result holder.

A Future is resolved at most once; later calls to Resolve are ignored. Callers either
wait on it with a context or register completion callbacks, so timer and response
resolution never needs to block the goroutine that started the operation.
*/
package future

import (
	"context"
	"sync"
)

// Future holds a value of type T that becomes available exactly once.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	resolved  bool
	callbacks []func(T)
}

// New returns an unresolved Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that already holds v.
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Resolve stores v and wakes all waiters. It reports whether this call resolved
// the future; resolving an already-resolved future is a no-op.
// Callbacks run synchronously on the resolving goroutine, outside the lock.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.value = v
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v)
	}
	return true
}

// Done returns a channel closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsResolved reports whether the future holds a value.
func (f *Future[T]) IsResolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Value returns the resolved value and true, or the zero value and false if the
// future is still pending.
func (f *Future[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.resolved
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		v, _ := f.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers cb to run with the resolved value. If the future is
// already resolved, cb runs immediately on the calling goroutine.
func (f *Future[T]) OnComplete(cb func(T)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v := f.value
	f.mu.Unlock()

	cb(v)
}

// Map returns a Future resolved with fn applied to the value of src.
func Map[T, U any](src *Future[T], fn func(T) U) *Future[U] {
	dst := New[U]()
	src.OnComplete(func(v T) {
		dst.Resolve(fn(v))
	})
	return dst
}
