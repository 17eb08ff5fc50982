package tracker

import (
	"time"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/record"
)

// ClickAction is a click already classified by the host. Events are the
// raw events that made up the click.
type ClickAction struct {
	Start       time.Time
	Frustration []record.FrustrationType
	Events      []*dom.Event
}

// Frustration turns classified clicks into frustration records that point
// at the interaction records of the same events.
type Frustration struct {
	cfg Config
}

// TrackFrustration returns the frustration correlator. It must share
// RecordIDs with the interaction tracker.
func TrackFrustration(cfg Config) *Frustration {
	cfg.defaults()
	return &Frustration{cfg: cfg}
}

// Report emits a frustration record for a click with at least one
// frustration type.
func (f *Frustration) Report(action ClickAction) {
	if len(action.Frustration) == 0 {
		return
	}
	ids := make([]int, 0, len(action.Events))
	for _, evt := range action.Events {
		ids = append(ids, f.cfg.RecordIDs.IDFor(evt))
	}
	ts := f.cfg.now()
	if !action.Start.IsZero() {
		ts = action.Start.UnixMilli()
	}
	f.cfg.Emit(record.Frustration(ts, action.Frustration, ids))
}

func (f *Frustration) Stop() {}
