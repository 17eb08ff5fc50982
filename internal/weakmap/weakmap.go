// CLAUDE:SUMMARY Generic map keyed by weak pointers; entries vanish when their key is collected.
// Package weakmap is a map keyed by pointers that does not keep its keys
// alive. Entries disappear once the key is garbage collected.
package weakmap

import (
	"runtime"
	"sync"
	"weak"
)

// Map associates values with *K keys without retaining the keys.
type Map[K any, V any] struct {
	mu sync.Mutex
	m  map[weak.Pointer[K]]V
}

// New returns an empty map.
func New[K any, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[weak.Pointer[K]]V)}
}

// Set stores v for k.
func (w *Map[K, V]) Set(k *K, v V) {
	if k == nil {
		return
	}
	wp := weak.Make(k)
	w.mu.Lock()
	_, existed := w.m[wp]
	w.m[wp] = v
	w.mu.Unlock()
	if !existed {
		runtime.AddCleanup(k, w.evict, wp)
	}
}

// Get returns the value stored for k.
func (w *Map[K, V]) Get(k *K) (V, bool) {
	var zero V
	if k == nil {
		return zero, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.m[weak.Make(k)]
	return v, ok
}

// Has reports whether k has a value.
func (w *Map[K, V]) Has(k *K) bool {
	_, ok := w.Get(k)
	return ok
}

// Delete removes k.
func (w *Map[K, V]) Delete(k *K) {
	if k == nil {
		return
	}
	w.mu.Lock()
	delete(w.m, weak.Make(k))
	w.mu.Unlock()
}

// Len returns the number of live entries.
func (w *Map[K, V]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.m)
}

func (w *Map[K, V]) evict(wp weak.Pointer[K]) {
	w.mu.Lock()
	delete(w.m, wp)
	w.mu.Unlock()
}
