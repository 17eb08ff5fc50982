// CLAUDE:SUMMARY Timers that re-enter the document turn, plus throttle and mutation batch primitives.
// Package schedule provides the timing primitives of the recorder: a timer
// source that re-enters the document turn, a leading/trailing throttle and
// the idle-bounded batch used by mutation observation.
//
// All callbacks fire through the Timers' run function, so they execute
// inside a document turn exactly like browser timer tasks.
package schedule

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback; it reports whether it was still pending.
	Stop() bool
}

// Timers is the clock and timer source used by trackers and segments.
type Timers interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	// RequestIdle runs fn when the page is idle, at the latest after timeout.
	RequestIdle(fn func(), timeout time.Duration) Timer
}

// IdleFunc requests an idle callback from the host. The callback is
// expected to enter the document turn itself.
type IdleFunc func(fn func(), timeout time.Duration) (cancel func())

// Real schedules on the wall clock.
type Real struct {
	run  func(func())
	idle IdleFunc
}

// NewReal returns wall-clock timers. run wraps every callback (typically
// dom.Document.Run); idle may be nil, in which case idle callbacks fire at
// their timeout.
func NewReal(run func(func()), idle IdleFunc) *Real {
	if run == nil {
		run = func(fn func()) { fn() }
	}
	return &Real{run: run, idle: idle}
}

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { r.run(fn) })
}

type cancelTimer struct {
	once   sync.Once
	cancel func()
}

func (c *cancelTimer) Stop() bool {
	stopped := false
	c.once.Do(func() {
		c.cancel()
		stopped = true
	})
	return stopped
}

func (r *Real) RequestIdle(fn func(), timeout time.Duration) Timer {
	if r.idle == nil {
		return r.AfterFunc(timeout, fn)
	}
	return &cancelTimer{cancel: r.idle(fn, timeout)}
}

// Manual is a virtual clock for tests. Nothing fires until Advance or
// RunIdle is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*manualTimer
	run     func(func())
}

type manualTimer struct {
	m     *Manual
	at    time.Time
	seq   int
	idle  bool
	fn    func()
	fired bool
}

// NewManual returns a virtual clock starting at start. run wraps callbacks
// like in NewReal and may be nil.
func NewManual(start time.Time, run func(func())) *Manual {
	if run == nil {
		run = func(fn func()) { fn() }
	}
	return &Manual{now: start, run: run}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(d, fn, false)
}

func (m *Manual) RequestIdle(fn func(), timeout time.Duration) Timer {
	return m.add(timeout, fn, true)
}

func (m *Manual) add(d time.Duration, fn func(), idle bool) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, idle: idle, fn: fn}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired {
		return false
	}
	t.fired = true
	t.m.remove(t)
	return true
}

func (m *Manual) remove(t *manualTimer) {
	if i := slices.Index(m.pending, t); i >= 0 {
		m.pending = slices.Delete(m.pending, i, i+1)
	}
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Timers scheduled by callbacks fire too when they fall due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].at.Equal(m.pending[j].at) {
				return m.pending[i].seq < m.pending[j].seq
			}
			return m.pending[i].at.Before(m.pending[j].at)
		})
		if len(m.pending) == 0 || m.pending[0].at.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.pending[0]
		m.pending = slices.Delete(m.pending, 0, 1)
		t.fired = true
		if t.at.After(m.now) {
			m.now = t.at
		}
		m.mu.Unlock()
		m.run(t.fn)
	}
}

// RunIdle fires every pending idle callback now, as if the page went idle.
func (m *Manual) RunIdle() {
	m.mu.Lock()
	var due []*manualTimer
	kept := m.pending[:0]
	for _, t := range m.pending {
		if t.idle {
			t.fired = true
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	clear(m.pending[len(kept):])
	m.pending = kept
	m.mu.Unlock()
	for _, t := range due {
		m.run(t.fn)
	}
}

// Pending returns the number of timers not yet fired.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
