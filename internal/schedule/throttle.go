package schedule

import (
	"sync"
	"time"
)

// ThrottleOptions selects leading and trailing invocations.
type ThrottleOptions struct {
	Leading  bool
	Trailing bool
}

// DefaultThrottle invokes on both edges.
var DefaultThrottle = ThrottleOptions{Leading: true, Trailing: true}

// Throttle limits fn to one call per wait period. During a wait period the
// latest arguments are kept and, with Trailing, replayed when it ends.
type Throttle[T any] struct {
	timers Timers
	wait   time.Duration
	opts   ThrottleOptions
	fn     func(T)
	idle   func()

	mu      sync.Mutex
	waiting bool
	pending *T
	timer   Timer
}

// NewThrottle wraps fn.
func NewThrottle[T any](timers Timers, wait time.Duration, opts ThrottleOptions, fn func(T)) *Throttle[T] {
	return &Throttle[T]{timers: timers, wait: wait, opts: opts, fn: fn}
}

// OnIdle registers fn to run when a wait period ends with nothing left to
// replay. It must be set before the first Call.
func (t *Throttle[T]) OnIdle(fn func()) { t.idle = fn }

// Call invokes or defers fn(v).
func (t *Throttle[T]) Call(v T) {
	t.mu.Lock()
	if t.waiting {
		t.pending = &v
		t.mu.Unlock()
		return
	}
	t.waiting = true
	lead := t.opts.Leading
	if !lead {
		t.pending = &v
	}
	t.timer = t.timers.AfterFunc(t.wait, t.expire)
	t.mu.Unlock()
	if lead {
		t.fn(v)
	}
}

func (t *Throttle[T]) expire() {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.waiting = false
	t.timer = nil
	trail := t.opts.Trailing && pending != nil
	t.mu.Unlock()
	if trail {
		t.fn(*pending)
	}
	t.mu.Lock()
	busy := t.waiting
	t.mu.Unlock()
	if !busy && t.idle != nil {
		t.idle()
	}
}

// Cancel drops any pending invocation and ends the wait period.
func (t *Throttle[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.waiting = false
	t.pending = nil
}
