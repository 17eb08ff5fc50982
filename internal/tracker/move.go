package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/record"
)

// Move records pointer and touch positions, at most once per MoveThrottle.
type Move struct {
	cfg       Config
	throttle  *schedule.Throttle[*dom.Event]
	listeners listeners
}

// TrackMove starts the move tracker on the document.
func TrackMove(cfg Config) *Move {
	cfg.defaults()
	m := &Move{cfg: cfg}
	m.throttle = schedule.NewThrottle(cfg.Timers, cfg.MoveThrottle,
		schedule.ThrottleOptions{Leading: true, Trailing: false}, m.record)
	for _, typ := range []string{dom.EventMouseMove, dom.EventTouchMove} {
		m.listeners.add(cfg.Doc.AddEventListener(cfg.Doc.Node(), typ, m.throttle.Call))
	}
	return m
}

func (m *Move) record(evt *dom.Event) {
	id, ok := m.cfg.Registry.ID(evt.EffectiveTarget())
	if !ok {
		return
	}
	x, y := layoutCoordinates(m.cfg.Doc, evt.ClientX, evt.ClientY)
	source := record.SourceMouseMove
	if evt.Type == dom.EventTouchMove {
		source = record.SourceTouchMove
	}
	m.cfg.emitIncremental(record.MoveData{
		Source:    source,
		Positions: []record.MousePosition{{X: x, Y: y, ID: id}},
	})
}

func (m *Move) Stop() {
	m.listeners.stop()
	m.throttle.Cancel()
}
