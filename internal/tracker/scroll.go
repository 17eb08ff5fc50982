package tracker

import (
	"math"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/record"
)

// Scroll records scroll offsets of the document and of scrollable
// elements, throttled per target.
type Scroll struct {
	cfg       Config
	throttles map[*dom.Node]*schedule.Throttle[*dom.Node]
	listeners listeners
}

// TrackScroll starts the scroll tracker on scope: the document node or a
// shadow root. Scroll events do not cross shadow boundaries.
func TrackScroll(cfg Config, scope *dom.Node) *Scroll {
	cfg.defaults()
	s := &Scroll{cfg: cfg, throttles: make(map[*dom.Node]*schedule.Throttle[*dom.Node])}
	s.listeners.add(cfg.Doc.AddEventListener(scope, dom.EventScroll, s.handle))
	return s
}

func (s *Scroll) handle(evt *dom.Event) {
	target := evt.EffectiveTarget()
	if target == nil {
		return
	}
	th, ok := s.throttles[target]
	if !ok {
		th = schedule.NewThrottle(s.cfg.Timers, s.cfg.ScrollThrottle, schedule.DefaultThrottle, s.record)
		// Idle targets leave the table so detached elements can be collected.
		th.OnIdle(func() {
			if s.throttles[target] == th {
				delete(s.throttles, target)
			}
		})
		s.throttles[target] = th
	}
	th.Call(target)
}

func (s *Scroll) record(target *dom.Node) {
	id, ok := s.cfg.recordable(target)
	if !ok {
		return
	}
	var left, top float64
	element := target
	if target == s.cfg.Doc.Node() {
		left, top = s.cfg.Doc.WindowScroll()
		element = s.cfg.Doc.DocumentElement()
	} else {
		left, top = target.Scroll()
	}
	left, top = math.Round(left), math.Round(top)
	if element != nil {
		s.cfg.Scroll.Set(element, serialize.ScrollPosition{Top: top, Left: left})
	}
	s.cfg.emitIncremental(record.ScrollData{Source: record.SourceScroll, ID: id, X: left, Y: top})
}

func (s *Scroll) Stop() {
	s.listeners.stop()
	for _, th := range s.throttles {
		th.Cancel()
	}
	clear(s.throttles)
}
