package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/record"
)

// Focus records window focus and blur.
type Focus struct {
	cfg       Config
	listeners listeners
}

// TrackFocus starts the window focus tracker.
func TrackFocus(cfg Config) *Focus {
	cfg.defaults()
	t := &Focus{cfg: cfg}
	for _, typ := range []string{dom.EventFocus, dom.EventBlur} {
		t.listeners.add(cfg.Doc.AddEventListener(nil, typ, func(evt *dom.Event) {
			if evt.Target != nil {
				return
			}
			t.cfg.Emit(record.Focus(t.cfg.now(), t.cfg.Doc.HasFocus()))
		}))
	}
	return t
}

func (t *Focus) Stop() { t.listeners.stop() }

// ViewEnd emits the ViewEnd record of a view. Pending mutations are flushed
// first so they land before it.
type ViewEnd struct {
	cfg            Config
	flushMutations func()
}

// TrackViewEnd returns the view end emitter. flushMutations runs inside the
// document turn.
func TrackViewEnd(cfg Config, flushMutations func()) *ViewEnd {
	cfg.defaults()
	return &ViewEnd{cfg: cfg, flushMutations: flushMutations}
}

// End flushes mutations and emits ViewEnd. It must run inside the document
// turn.
func (v *ViewEnd) End() {
	if v.flushMutations != nil {
		v.flushMutations()
	}
	v.cfg.Emit(record.ViewEnd(v.cfg.now()))
}

func (v *ViewEnd) Stop() {}
