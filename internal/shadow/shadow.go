// CLAUDE:SUMMARY Keeps one set of observers per shadow root and flushes or stops them together.
// Package shadow keeps one set of observers per serialized shadow root.
//
// Shadow trees are invisible to document-level mutation observers and to
// non-composed events, so every shadow root met by the serializer gets its
// own observers. They are retired when the host leaves the document.
package shadow

import (
	"log/slog"
	"sync"

	"github.com/hazyhaar/domreplay/dom"
)

// Observer is the per-root bundle the controller manages.
type Observer interface {
	Flush()
	Stop()
}

// Factory starts observers on a shadow root.
type Factory func(root *dom.Node) Observer

// Controller tracks live shadow roots.
type Controller struct {
	factory Factory
	logger  *slog.Logger

	mu    sync.Mutex
	roots map[*dom.Node]Observer
	order []*dom.Node
}

// New returns a controller. The factory can be installed later with
// SetFactory when it needs the controller itself.
func New(factory Factory, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{factory: factory, logger: logger, roots: make(map[*dom.Node]Observer)}
}

// SetFactory installs the observer factory.
func (c *Controller) SetFactory(f Factory) {
	c.mu.Lock()
	c.factory = f
	c.mu.Unlock()
}

// AddShadowRoot starts observing root. Adding a known root is a no-op.
func (c *Controller) AddShadowRoot(root *dom.Node) {
	c.mu.Lock()
	if _, ok := c.roots[root]; ok || c.factory == nil {
		c.mu.Unlock()
		return
	}
	factory := c.factory
	c.roots[root] = nil
	c.order = append(c.order, root)
	c.mu.Unlock()

	obs := factory(root)

	c.mu.Lock()
	if _, still := c.roots[root]; still {
		c.roots[root] = obs
		obs = nil
	}
	c.mu.Unlock()
	if obs != nil {
		obs.Stop()
	}
	c.logger.Debug("shadow: root added", "roots", c.Len())
}

// RemoveShadowRoot stops the observers of root.
func (c *Controller) RemoveShadowRoot(root *dom.Node) {
	c.mu.Lock()
	obs, ok := c.roots[root]
	if ok {
		delete(c.roots, root)
		for i, r := range c.order {
			if r == root {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
	if ok && obs != nil {
		obs.Stop()
	}
}

// Has reports whether root is observed.
func (c *Controller) Has(root *dom.Node) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.roots[root]
	return ok
}

// Len returns the number of observed roots.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.roots)
}

func (c *Controller) snapshot() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Observer, 0, len(c.order))
	for _, r := range c.order {
		if obs := c.roots[r]; obs != nil {
			out = append(out, obs)
		}
	}
	return out
}

// Flush flushes every root's pending mutations, in the order roots were
// added.
func (c *Controller) Flush() {
	for _, obs := range c.snapshot() {
		obs.Flush()
	}
}

// Stop stops and forgets every root.
func (c *Controller) Stop() {
	obs := c.snapshot()
	c.mu.Lock()
	c.roots = make(map[*dom.Node]Observer)
	c.order = nil
	c.mu.Unlock()
	for _, o := range obs {
		o.Stop()
	}
}
