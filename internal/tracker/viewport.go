package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/record"
)

// Viewport records layout viewport resizes.
type Viewport struct {
	cfg       Config
	throttle  *schedule.Throttle[struct{}]
	listeners listeners
}

// TrackViewport starts the viewport resize tracker.
func TrackViewport(cfg Config) *Viewport {
	cfg.defaults()
	v := &Viewport{cfg: cfg}
	v.throttle = schedule.NewThrottle(cfg.Timers, cfg.ViewportThrottle, schedule.DefaultThrottle, func(struct{}) {
		vp := v.cfg.Doc.Viewport()
		v.cfg.emitIncremental(record.ViewportResizeData{
			Source: record.SourceViewportResize,
			Width:  vp.Width,
			Height: vp.Height,
		})
	})
	v.listeners.add(cfg.Doc.AddEventListener(nil, dom.EventResize, func(*dom.Event) {
		v.throttle.Call(struct{}{})
	}))
	return v
}

func (v *Viewport) Stop() {
	v.listeners.stop()
	v.throttle.Cancel()
}

// VisualViewport records pinch-zoom viewport changes. It is inert when the
// document has no visual viewport.
type VisualViewport struct {
	cfg       Config
	throttle  *schedule.Throttle[struct{}]
	listeners listeners
}

// TrackVisualViewport starts the visual viewport tracker.
func TrackVisualViewport(cfg Config) *VisualViewport {
	cfg.defaults()
	v := &VisualViewport{cfg: cfg}
	v.throttle = schedule.NewThrottle(cfg.Timers, cfg.ViewportThrottle, schedule.DefaultThrottle, func(struct{}) {
		if data, ok := VisualViewportData(v.cfg.Doc); ok {
			v.cfg.Emit(record.VisualViewport(v.cfg.now(), data))
		}
	})
	for _, typ := range []string{dom.EventVisualViewportResize, dom.EventVisualViewportScroll} {
		v.listeners.add(cfg.Doc.AddEventListener(nil, typ, func(*dom.Event) {
			v.throttle.Call(struct{}{})
		}))
	}
	return v
}

func (v *VisualViewport) Stop() {
	v.listeners.stop()
	v.throttle.Cancel()
}

// VisualViewportData reads the document's visual viewport.
func VisualViewportData(d *dom.Document) (record.VisualViewportData, bool) {
	vv := d.VisualViewport()
	if vv == nil {
		return record.VisualViewportData{}, false
	}
	return record.VisualViewportData{
		Scale:      vv.Scale,
		OffsetLeft: vv.OffsetLeft,
		OffsetTop:  vv.OffsetTop,
		PageLeft:   vv.PageLeft,
		PageTop:    vv.PageTop,
		Height:     vv.Height,
		Width:      vv.Width,
	}, true
}
