// CLAUDE:SUMMARY Assigns stable, never-reused node ids without keeping nodes alive.
// Package nodeid assigns replay node ids. Ids start at 1, grow
// monotonically and are never reused; the registry holds nodes weakly.
package nodeid

import (
	"sync"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/weakmap"
)

// Registry is scoped to one recording.
type Registry struct {
	ids *weakmap.Map[dom.Node, int]

	mu   sync.Mutex
	next int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ids: weakmap.New[dom.Node, int](), next: 1}
}

// GetOrAssign returns the id of n, assigning the next one on first sight.
func (r *Registry) GetOrAssign(n *dom.Node) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids.Get(n); ok {
		return id
	}
	id := r.next
	r.next++
	r.ids.Set(n, id)
	return id
}

// ID returns the id of n if it has been serialized.
func (r *Registry) ID(n *dom.Node) (int, bool) {
	return r.ids.Get(n)
}

// Has reports whether n holds an id.
func (r *Registry) Has(n *dom.Node) bool {
	return r.ids.Has(n)
}

// AncestorsSerialized reports whether n and every logical ancestor (shadow
// roots continue through their host) hold an id.
func (r *Registry) AncestorsSerialized(n *dom.Node) bool {
	if n == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.LogicalParent() {
		if !r.Has(cur) {
			return false
		}
	}
	return true
}

// Count returns the number of ids handed out.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next - 1
}
