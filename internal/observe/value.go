// Package observe provides a latest-value signal with coalescing watchers.
package observe

import (
	"context"
	"sync"
)

// Value holds a value of type T and notifies watchers when it changes.
// Watchers always see the newest value; intermediate values may be skipped.
type Value[T any] struct {
	mu       sync.Mutex
	v        T
	watchers map[*watcher[T]]struct{}
}

type watcher[T any] struct {
	ch chan T
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		v:        initial,
		watchers: make(map[*watcher[T]]struct{}),
	}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v
}

// Store sets the value and notifies all watchers.
func (v *Value[T]) Store(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.v = x
	for w := range v.watchers {
		offer(w.ch, x)
	}
}

// Watch returns a channel that receives the current value immediately and
// every later value until ctx is done, at which point the channel is closed.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	w := &watcher[T]{ch: make(chan T, 1)}

	v.mu.Lock()
	w.ch <- v.v
	v.watchers[w] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.watchers, w)
		close(w.ch)
		v.mu.Unlock()
	}()

	return w.ch
}

// offer replaces any unread value in ch with x. Caller holds the lock, so
// ch has a single producer.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- x
}
