package schedule

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch, nil)
	var got []string
	m.AfterFunc(30*time.Millisecond, func() { got = append(got, "b") })
	m.AfterFunc(10*time.Millisecond, func() {
		got = append(got, "a")
		m.AfterFunc(5*time.Millisecond, func() { got = append(got, "a2") })
	})
	stopped := m.AfterFunc(20*time.Millisecond, func() { got = append(got, "never") })
	if !stopped.Stop() {
		t.Fatal("Stop: want true for a pending timer")
	}

	m.Advance(25 * time.Millisecond)
	if len(got) != 2 || got[0] != "a" || got[1] != "a2" {
		t.Fatalf("after 25ms: got %v", got)
	}
	m.Advance(10 * time.Millisecond)
	if len(got) != 3 || got[2] != "b" {
		t.Fatalf("after 35ms: got %v", got)
	}
	if now := m.Now(); !now.Equal(epoch.Add(35 * time.Millisecond)) {
		t.Errorf("Now: got %v", now)
	}
}

func TestManual_RunWrapsCallbacks(t *testing.T) {
	depth := 0
	m := NewManual(epoch, func(fn func()) {
		depth++
		fn()
		depth--
	})
	seen := -1
	m.AfterFunc(time.Millisecond, func() { seen = depth })
	m.Advance(time.Millisecond)
	if seen != 1 {
		t.Fatalf("callback depth: got %d, want 1", seen)
	}
}

func TestThrottle_LeadingAndTrailing(t *testing.T) {
	m := NewManual(epoch, nil)
	var calls []int
	th := NewThrottle(m, 50*time.Millisecond, DefaultThrottle, func(v int) { calls = append(calls, v) })

	th.Call(1)
	th.Call(2)
	th.Call(3)
	if len(calls) != 1 || calls[0] != 1 {
		t.Fatalf("leading: got %v", calls)
	}
	m.Advance(50 * time.Millisecond)
	if len(calls) != 2 || calls[1] != 3 {
		t.Fatalf("trailing: got %v, want last args", calls)
	}
	th.Call(4)
	if len(calls) != 3 {
		t.Fatalf("new period: got %v", calls)
	}
}

func TestThrottle_OnIdleAfterWaitPeriod(t *testing.T) {
	m := NewManual(epoch, nil)
	var calls []int
	idle := 0
	th := NewThrottle(m, 50*time.Millisecond, DefaultThrottle, func(v int) { calls = append(calls, v) })
	th.OnIdle(func() { idle++ })

	th.Call(1)
	th.Call(2)
	if idle != 0 {
		t.Fatalf("idle during wait period: got %d", idle)
	}
	m.Advance(50 * time.Millisecond)
	if idle != 1 || len(calls) != 2 {
		t.Fatalf("after trailing: idle %d, calls %v", idle, calls)
	}
	th.Cancel()
	if idle != 1 {
		t.Fatalf("cancel must not report idle: got %d", idle)
	}
}

func TestThrottle_NoTrailing(t *testing.T) {
	m := NewManual(epoch, nil)
	n := 0
	th := NewThrottle(m, 50*time.Millisecond, ThrottleOptions{Leading: true}, func(struct{}) { n++ })
	th.Call(struct{}{})
	th.Call(struct{}{})
	m.Advance(time.Second)
	if n != 1 {
		t.Fatalf("calls: got %d, want 1", n)
	}
}

func TestThrottle_Cancel(t *testing.T) {
	m := NewManual(epoch, nil)
	n := 0
	th := NewThrottle(m, 50*time.Millisecond, ThrottleOptions{Trailing: true}, func(int) { n++ })
	th.Call(1)
	th.Cancel()
	m.Advance(time.Second)
	if n != 0 {
		t.Fatalf("calls after cancel: got %d", n)
	}
}

func TestBatch_IdleThenThrottledFlush(t *testing.T) {
	m := NewManual(epoch, nil)
	var batches [][]string
	b := NewBatch(m, 16*time.Millisecond, 100*time.Millisecond, func(items []string) {
		batches = append(batches, items)
	})

	b.Add("a")
	b.Add("b")
	m.RunIdle()
	if len(batches) != 0 {
		t.Fatalf("flush must wait for the throttle: got %v", batches)
	}
	m.Advance(16 * time.Millisecond)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("batches: got %v", batches)
	}
}

func TestBatch_MaxDelayBoundsIdleWait(t *testing.T) {
	m := NewManual(epoch, nil)
	n := 0
	b := NewBatch(m, 16*time.Millisecond, 100*time.Millisecond, func([]int) { n++ })
	b.Add(1)
	m.Advance(100 * time.Millisecond)
	if n != 0 {
		t.Fatalf("flushed before min spacing elapsed")
	}
	m.Advance(16 * time.Millisecond)
	if n != 1 {
		t.Fatalf("flushes: got %d, want 1", n)
	}
}

func TestBatch_ForcedFlushCancelsIdle(t *testing.T) {
	m := NewManual(epoch, nil)
	var sizes []int
	b := NewBatch(m, 16*time.Millisecond, 100*time.Millisecond, func(items []int) { sizes = append(sizes, len(items)) })
	b.Add(1, 2)
	b.Flush()
	m.Advance(time.Second)
	if len(sizes) != 1 || sizes[0] != 2 {
		t.Fatalf("sizes: got %v", sizes)
	}
	if b.Len() != 0 {
		t.Errorf("Len: got %d", b.Len())
	}
}
