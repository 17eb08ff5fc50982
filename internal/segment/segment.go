// CLAUDE:SUMMARY Accumulates records into size and time bounded compressed segments with immutable metadata.
// Package segment accumulates the records of a view into bounded segments.
//
// A segment body is the JSON object {"records":[...],<metadata>} followed by
// a newline, written incrementally into a compressed stream. Exactly one
// segment is active at a time; it is flushed on the duration limit, on the
// size limit, on view change, on page exit or on stop.
package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/record"
)

// Limits.
const (
	DefaultDurationLimit = 30 * time.Second
	DefaultBytesLimit    = 60_000
)

// Source is the metadata source of every segment.
const Source = "browser"

// Stream is the compressed stream segments are written to. Write callbacks
// and Finish callbacks for pending writes must not run inline.
type Stream interface {
	Write(data string, cb func(additionalEncodedBytes int))
	Finish(cb func(encoder.Result, error))
	Err() error
}

// ContextProvider returns the identifiers of the current view, or false
// when no view is active.
type ContextProvider func() (record.SegmentContext, bool)

// Flushed is a finished segment ready for payload assembly.
type Flushed struct {
	Metadata record.SegmentMetadata
	Result   encoder.Result
	Reason   record.FlushReason
}

// Config wires a Collection. Deliver may run while the collection is
// locked and must not call back into it.
type Config struct {
	NewStream func() Stream
	Context   ContextProvider
	Timers    schedule.Timers
	Deliver   func(Flushed)

	DurationLimit time.Duration
	BytesLimit    int

	// OnLost is called when a flushed segment cannot be delivered because
	// its stream failed.
	OnLost func(reason record.FlushReason, err error)

	Logger *slog.Logger
}

// ViewStats counts what a view produced.
type ViewStats struct {
	Segments int
	Records  int
	RawBytes int
}

type segment struct {
	meta    record.SegmentMetadata
	encoded atomic.Int64
	limited atomic.Bool
	timer   schedule.Timer
}

// Collection owns the active segment.
type Collection struct {
	cfg Config

	mu         sync.Mutex
	stream     Stream
	current    *segment
	nextReason record.CreationReason
	stopped    bool

	statsMu sync.Mutex
	stats   map[string]*ViewStats

	inflight sync.WaitGroup
}

// New returns a collection writing to a stream from cfg.NewStream.
func New(cfg Config) (*Collection, error) {
	if cfg.NewStream == nil || cfg.Context == nil || cfg.Timers == nil || cfg.Deliver == nil {
		return nil, errors.New("segment: new: NewStream, Context, Timers and Deliver are required")
	}
	if cfg.DurationLimit <= 0 {
		cfg.DurationLimit = DefaultDurationLimit
	}
	if cfg.BytesLimit <= 0 {
		cfg.BytesLimit = DefaultBytesLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Collection{
		cfg:        cfg,
		stream:     cfg.NewStream(),
		nextReason: record.ReasonInit,
		stats:      make(map[string]*ViewStats),
	}, nil
}

// AddRecord appends rec to the active segment, opening one if needed.
// Records arriving without an active view, or after stop, are dropped.
func (c *Collection) AddRecord(rec record.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("segment: add record: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	seg := c.current
	prefix := ","
	if seg == nil {
		ctx, ok := c.cfg.Context()
		if !ok {
			return nil
		}
		seg = c.open(ctx, rec.Timestamp)
		prefix = `{"records":[`
	}

	m := &seg.meta
	m.Start = min(m.Start, rec.Timestamp)
	m.End = max(m.End, rec.Timestamp)
	m.RecordsCount++
	m.HasFullSnapshot = m.HasFullSnapshot || rec.IsFullSnapshot()
	c.addStats(m.View.ID, func(s *ViewStats) { s.Records++ })

	c.stream.Write(prefix+string(b), func(n int) { c.encoded(seg, n) })
	return nil
}

// open starts a segment. Callers hold c.mu.
func (c *Collection) open(ctx record.SegmentContext, ts int64) *segment {
	if err := c.stream.Err(); err != nil {
		c.cfg.Logger.Warn("segment: replacing failed stream", "error", err)
		c.stream = c.cfg.NewStream()
	}
	index := 0
	c.addStats(ctx.View.ID, func(s *ViewStats) {
		index = s.Segments
		s.Segments++
	})
	seg := &segment{meta: record.SegmentMetadata{
		SegmentContext: ctx,
		Start:          ts,
		End:            ts,
		CreationReason: c.nextReason,
		IndexInView:    index,
		Source:         Source,
	}}
	seg.timer = c.cfg.Timers.AfterFunc(c.cfg.DurationLimit, func() {
		c.flushSegment(seg, record.ReasonSegmentDurationLimit)
	})
	c.current = seg
	c.cfg.Logger.Debug("segment: opened", "view", ctx.View.ID, "reason", seg.meta.CreationReason, "index", seg.meta.IndexInView)
	return seg
}

func (c *Collection) addStats(view string, fn func(*ViewStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s, ok := c.stats[view]
	if !ok {
		s = &ViewStats{}
		c.stats[view] = s
	}
	fn(s)
}

func (c *Collection) encoded(seg *segment, n int) {
	total := seg.encoded.Add(int64(n))
	if total > int64(c.cfg.BytesLimit) && seg.limited.CompareAndSwap(false, true) {
		c.flushSegment(seg, record.ReasonSegmentBytesLimit)
	}
}

// Flush closes the active segment for reason. Without an active segment
// it does nothing, except that stop still ends the collection.
func (c *Collection) Flush(reason record.FlushReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reason == record.ReasonStop {
		defer func() { c.stopped = true }()
	}
	if c.current != nil {
		c.flushLocked(reason)
	}
}

func (c *Collection) flushSegment(seg *segment, reason record.FlushReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != seg {
		return
	}
	c.flushLocked(reason)
}

// flushLocked writes the metadata tail and finishes the stream. Callers
// hold c.mu.
func (c *Collection) flushLocked(reason record.FlushReason) {
	seg := c.current
	c.current = nil
	c.nextReason = reason
	if seg.timer != nil {
		seg.timer.Stop()
	}

	meta := seg.meta
	b, err := json.Marshal(meta)
	if err != nil {
		c.cfg.Logger.Error("segment: metadata", "error", err)
		return
	}
	c.stream.Write("],"+string(b[1:])+"\n", nil)

	// The callback may run inline, under c.mu: it must not take it.
	c.inflight.Add(1)
	c.stream.Finish(func(res encoder.Result, err error) {
		defer c.inflight.Done()
		if err != nil {
			c.cfg.Logger.Warn("segment: dropped", "reason", reason, "view", meta.View.ID, "error", err)
			if c.cfg.OnLost != nil {
				c.cfg.OnLost(reason, err)
			}
			return
		}
		c.addStats(meta.View.ID, func(s *ViewStats) { s.RawBytes += res.RawBytesCount })
		c.cfg.Logger.Debug("segment: flushed", "reason", reason, "records", meta.RecordsCount,
			"raw", res.RawBytesCount, "compressed", res.OutputBytesCount)
		c.cfg.Deliver(Flushed{Metadata: meta, Result: res, Reason: reason})
	})
}

// Wait blocks until every flushed segment has been handed to Deliver or
// dropped.
func (c *Collection) Wait() {
	c.inflight.Wait()
}

// Stop flushes with the stop reason and waits for the result. No segment
// is created afterwards.
func (c *Collection) Stop() {
	c.Flush(record.ReasonStop)
	c.Wait()
}

// Active reports whether a segment is open.
func (c *Collection) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Stats returns the counters of a view.
func (c *Collection) Stats(view string) ViewStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if s, ok := c.stats[view]; ok {
		return *s
	}
	return ViewStats{}
}
