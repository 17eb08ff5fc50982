package dom

import (
	"sync"
	"time"
)

// ComparePosition orders a and b in document order: -1 when a comes first,
// 1 when b does, 0 when equal or in unrelated trees. Ancestors precede their
// descendants and a shadow tree follows its host's light children.
func ComparePosition(a, b *Node) int {
	if a == b {
		return 0
	}
	ca, cb := chain(a), chain(b)
	if ca[0] != cb[0] {
		return 0
	}
	i := 0
	for i < len(ca) && i < len(cb) && ca[i] == cb[i] {
		i++
	}
	switch {
	case i == len(ca):
		return -1
	case i == len(cb):
		return 1
	}
	parent := ca[i-1]
	if childKey(parent, ca[i]) < childKey(parent, cb[i]) {
		return -1
	}
	return 1
}

// chain returns the logical ancestors of n from the root down to n.
func chain(n *Node) []*Node {
	var rev []*Node
	for cur := n; cur != nil; cur = cur.LogicalParent() {
		rev = append(rev, cur)
	}
	out := make([]*Node, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

func childKey(parent, child *Node) int {
	if child.host == parent {
		return len(parent.children)
	}
	return parent.indexOf(child)
}

const idleQuietPeriod = 16 * time.Millisecond

// RequestIdleCallback runs fn inside a document turn once the document has
// been quiet for a frame, or when timeout elapses. cancel prevents a pending
// run.
func (d *Document) RequestIdleCallback(fn func(), timeout time.Duration) (cancel func()) {
	deadline := time.Now().Add(timeout)
	var (
		mu       sync.Mutex
		stopped  bool
		t        *time.Timer
		schedule func()
	)
	check := func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		now := time.Now()
		if now.Before(deadline) && now.Sub(d.LastActivity()) < idleQuietPeriod {
			schedule()
			mu.Unlock()
			return
		}
		stopped = true
		mu.Unlock()
		d.Run(fn)
	}
	schedule = func() {
		wait := idleQuietPeriod
		if rem := time.Until(deadline); rem < wait {
			wait = max(rem, 0)
		}
		t = time.AfterFunc(wait, check)
	}
	mu.Lock()
	schedule()
	mu.Unlock()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if t != nil {
			t.Stop()
		}
	}
}
