package schedule

import (
	"sync"
	"time"
)

// Batch buffers items and processes them once the page is idle (at the
// latest after maxDelay), never more than once per minSpacing.
type Batch[T any] struct {
	process  func([]T)
	throttle *Throttle[struct{}]
	timers   Timers
	maxDelay time.Duration

	mu      sync.Mutex
	pending []T
	idle    Timer
}

// NewBatch returns an empty batch. process receives the buffered items,
// possibly none when a flush is forced.
func NewBatch[T any](timers Timers, minSpacing, maxDelay time.Duration, process func([]T)) *Batch[T] {
	b := &Batch[T]{process: process, timers: timers, maxDelay: maxDelay}
	b.throttle = NewThrottle(timers, minSpacing, ThrottleOptions{Leading: false, Trailing: true}, func(struct{}) { b.Flush() })
	return b
}

// Add buffers items. The first item of a batch requests the idle callback.
func (b *Batch[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.idle = b.timers.RequestIdle(func() { b.throttle.Call(struct{}{}) }, b.maxDelay)
	}
	b.pending = append(b.pending, items...)
	b.mu.Unlock()
}

// Flush cancels the scheduled flush and processes the buffer now.
func (b *Batch[T]) Flush() {
	b.mu.Lock()
	if b.idle != nil {
		b.idle.Stop()
		b.idle = nil
	}
	items := b.pending
	b.pending = nil
	b.mu.Unlock()
	b.process(items)
}

// Len returns the number of buffered items.
func (b *Batch[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stop cancels scheduled work without processing the buffer.
func (b *Batch[T]) Stop() {
	b.mu.Lock()
	if b.idle != nil {
		b.idle.Stop()
		b.idle = nil
	}
	b.mu.Unlock()
	b.throttle.Cancel()
}
