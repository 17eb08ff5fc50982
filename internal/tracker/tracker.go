// CLAUDE:SUMMARY Incremental trackers for pointer, scroll, viewport, input, media, stylesheet, focus and frustration records.
// Package tracker holds the incremental observers of a recording: pointer,
// scroll, viewport, input, media, stylesheet, focus, view end and
// frustration. Each one listens to the live document and emits typed
// IncrementalSnapshot (or dedicated) records through Config.Emit.
//
// Listeners and throttle callbacks run inside the document turn.
package tracker

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/internal/weakmap"
	"github.com/hazyhaar/domreplay/record"
)

// Default throttle periods.
const (
	DefaultMoveThrottle     = 50 * time.Millisecond
	DefaultScrollThrottle   = 100 * time.Millisecond
	DefaultViewportThrottle = 200 * time.Millisecond
)

// Config is shared by every tracker of one recording.
type Config struct {
	Doc      *dom.Document
	Registry *nodeid.Registry
	Resolver *privacy.Resolver
	Scroll   *serialize.ScrollMap
	Timers   schedule.Timers
	Emit     func(record.Record)

	// RecordIDs correlates raw interaction events with their records.
	RecordIDs *RecordIDs

	MoveThrottle     time.Duration
	ScrollThrottle   time.Duration
	ViewportThrottle time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MoveThrottle <= 0 {
		c.MoveThrottle = DefaultMoveThrottle
	}
	if c.ScrollThrottle <= 0 {
		c.ScrollThrottle = DefaultScrollThrottle
	}
	if c.ViewportThrottle <= 0 {
		c.ViewportThrottle = DefaultViewportThrottle
	}
	if c.RecordIDs == nil {
		c.RecordIDs = NewRecordIDs()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) now() int64 { return c.Timers.Now().UnixMilli() }

func (c *Config) emitIncremental(data record.IncrementalData) {
	c.Emit(record.Incremental(c.now(), data))
}

// recordable returns the id of n when facts about it may be emitted: n is
// serialized and neither hidden nor ignored.
func (c *Config) recordable(n *dom.Node) (int, bool) {
	if n == nil {
		return 0, false
	}
	id, ok := c.Registry.ID(n)
	if !ok {
		return 0, false
	}
	if c.Resolver.Resolve(n, nil).Sticky() {
		return 0, false
	}
	return id, true
}

// Tracker is a running observer.
type Tracker interface {
	Stop()
}

type listeners []func()

func (l *listeners) add(remove func()) { *l = append(*l, remove) }

func (l *listeners) stop() {
	for _, remove := range *l {
		remove()
	}
	*l = nil
}

// RecordIDs hands out correlation ids for raw events. The association is
// weak: events are not kept alive by it.
type RecordIDs struct {
	ids *weakmap.Map[dom.Event, int]

	mu   sync.Mutex
	next int
}

// NewRecordIDs returns an empty correlation table. Ids start at 0.
func NewRecordIDs() *RecordIDs {
	return &RecordIDs{ids: weakmap.New[dom.Event, int]()}
}

// IDFor returns the id of evt, assigning the next one on first use.
func (r *RecordIDs) IDFor(evt *dom.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids.Get(evt); ok {
		return id
	}
	id := r.next
	r.next++
	r.ids.Set(evt, id)
	return id
}

// layoutCoordinates converts client coordinates to the layout viewport.
// When pinch-zoom shifts the visual viewport away from the layout viewport,
// client coordinates are relative to the visual one.
func layoutCoordinates(d *dom.Document, x, y float64) (float64, float64) {
	vv := d.VisualViewport()
	if vv == nil {
		return x, y
	}
	sx, sy := d.WindowScroll()
	if math.Abs(vv.PageTop-vv.OffsetTop-sy) > 0.5 || math.Abs(vv.PageLeft-vv.OffsetLeft-sx) > 0.5 {
		return math.Round(x + vv.OffsetLeft), math.Round(y + vv.OffsetTop)
	}
	return x, y
}
