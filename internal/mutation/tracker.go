// CLAUDE:SUMMARY Batches DOM mutation notifications and turns them into ordered, privacy-filtered mutation records.
// Package mutation turns DOM mutation notifications into Mutation records.
//
// Notifications are buffered and processed in batches: on the next idle
// opportunity (bounded by MaxDelay) and no more often than MinSpacing.
// Every emitted fact references only nodes whose whole ancestor chain is
// already known to the player, and additions are ordered so that parents
// always precede their children.
package mutation

import (
	"log/slog"
	"time"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/record"
)

// Defaults for batch scheduling.
const (
	DefaultMaxDelay   = 100 * time.Millisecond
	DefaultMinSpacing = 16 * time.Millisecond
)

// ShadowRoots is the shadow-root controller as seen by the tracker.
type ShadowRoots interface {
	AddShadowRoot(root *dom.Node)
	RemoveShadowRoot(root *dom.Node)
}

// Config wires a tracker to the recording it belongs to.
type Config struct {
	Registry *nodeid.Registry
	Resolver *privacy.Resolver
	Shadow   ShadowRoots
	Timers   schedule.Timers
	Emit     func(record.Record)

	ActionNameAttribute string
	MaxDelay            time.Duration
	MinSpacing          time.Duration

	// OnDrop is told how many notifications were discarded because their
	// target was disconnected, unknown to the player, or hidden.
	OnDrop func(n int)

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.MinSpacing <= 0 {
		c.MinSpacing = DefaultMinSpacing
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Tracker observes one document or shadow root.
type Tracker struct {
	cfg      Config
	observer *dom.MutationObserver
	batch    *schedule.Batch[dom.MutationRecord]
}

// Start observes target (the document node or a shadow root).
func Start(target *dom.Node, cfg Config) *Tracker {
	cfg.defaults()
	t := &Tracker{cfg: cfg}
	t.batch = schedule.NewBatch(cfg.Timers, cfg.MinSpacing, cfg.MaxDelay, func(recs []dom.MutationRecord) {
		t.process(append(recs, t.observer.TakeRecords()...))
	})
	t.observer = target.OwnerDocument().NewMutationObserver(func(recs []dom.MutationRecord) {
		t.batch.Add(recs...)
	})
	t.observer.Observe(target)
	return t
}

// Flush processes buffered notifications and any the observer has not
// delivered yet. It must run inside a document turn.
func (t *Tracker) Flush() {
	t.batch.Flush()
}

// Stop disconnects the observer and cancels scheduled work. Buffered
// notifications are dropped.
func (t *Tracker) Stop() {
	t.observer.Disconnect()
	t.batch.Stop()
}

func (t *Tracker) process(recs []dom.MutationRecord) {
	if len(recs) == 0 {
		return
	}
	data, dropped := Process(recs, t.cfg)
	if dropped > 0 {
		t.cfg.Logger.Debug("mutation: notifications dropped", "dropped", dropped, "total", len(recs))
		if t.cfg.OnDrop != nil {
			t.cfg.OnDrop(dropped)
		}
	}
	if data.Empty() {
		return
	}
	t.cfg.Emit(record.Incremental(t.cfg.Timers.Now().UnixMilli(), data))
}
