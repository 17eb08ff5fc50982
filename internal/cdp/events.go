package cdp

import (
	_ "embed"
	"time"

	"github.com/hazyhaar/domreplay/dom"
)

//go:embed events.js
var eventsJS string

// BindingName is the Runtime binding the injected script reports through.
const BindingName = "__domreplay_binding"

// EventState is the initial-state message the script sends once installed.
const EventState = "state"

// VisualViewport is window.visualViewport as reported by the script.
type VisualViewport struct {
	Scale      float64 `json:"scale"`
	OffsetLeft float64 `json:"offsetLeft"`
	OffsetTop  float64 `json:"offsetTop"`
	PageLeft   float64 `json:"pageLeft"`
	PageTop    float64 `json:"pageTop"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// UserEvent is one event forwarded by the injected script. Path locates
// the target by child indexes from the document, -1 entering a shadow
// root; a nil path is the window and an empty one the document.
type UserEvent struct {
	Type     string  `json:"type"`
	Path     []int   `json:"path"`
	Composed bool    `json:"composed"`
	Time     float64 `json:"t"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	Value   *string `json:"value,omitempty"`
	Checked *bool   `json:"checked,omitempty"`

	Hidden   bool  `json:"hidden,omitempty"`
	HasFocus *bool `json:"hasFocus,omitempty"`

	ScrollLeft float64 `json:"scrollLeft"`
	ScrollTop  float64 `json:"scrollTop"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`

	Visual *VisualViewport `json:"visual,omitempty"`
}

// Resolve walks a path from the document node.
func (m *Mirror) Resolve(path []int) (*dom.Node, bool) {
	n := m.doc.Node()
	for _, i := range path {
		if i < 0 {
			n = n.ShadowRoot()
		} else if kids := n.ChildNodes(); i < len(kids) {
			n = kids[i]
		} else {
			n = nil
		}
		if n == nil {
			return nil, false
		}
	}
	return n, true
}

// Event applies the state an event carries to the mirror and dispatches
// it. It must run inside the document turn.
func (m *Mirror) Event(e UserEvent) {
	var target *dom.Node
	if e.Path != nil {
		var ok bool
		if target, ok = m.Resolve(e.Path); !ok {
			m.logger.Debug("cdp: event target not mirrored", "type", e.Type, "path", e.Path)
			return
		}
	}

	if e.HasFocus != nil {
		m.doc.SetFocus(*e.HasFocus)
	}
	if e.Visual != nil {
		m.doc.SetVisualViewport(&dom.VisualViewport{
			Scale: e.Visual.Scale, OffsetLeft: e.Visual.OffsetLeft, OffsetTop: e.Visual.OffsetTop,
			PageLeft: e.Visual.PageLeft, PageTop: e.Visual.PageTop,
			Width: e.Visual.Width, Height: e.Visual.Height,
		})
	}

	switch e.Type {
	case EventState:
		m.doc.SetViewport(dom.Viewport{Width: e.Width, Height: e.Height})
		m.doc.SetWindowScroll(e.ScrollLeft, e.ScrollTop)
		return
	case dom.EventResize:
		m.doc.SetViewport(dom.Viewport{Width: e.Width, Height: e.Height})
	case dom.EventScroll:
		if target == m.doc.Node() {
			m.doc.SetWindowScroll(e.ScrollLeft, e.ScrollTop)
		} else if target != nil {
			target.SetScroll(e.ScrollLeft, e.ScrollTop)
		}
	case dom.EventInput, dom.EventChange:
		if target == nil {
			return
		}
		if e.Checked != nil {
			target.EditChecked(*e.Checked)
		} else if e.Value != nil {
			target.EditValue(*e.Value)
		}
	case dom.EventPlay, dom.EventPause:
		if target != nil {
			target.SetPaused(e.Type == dom.EventPause)
		}
	}

	evt := &dom.Event{
		Type:     e.Type,
		Target:   target,
		Composed: e.Composed,
		ClientX:  e.X,
		ClientY:  e.Y,
		Hidden:   e.Hidden,
	}
	if e.Time > 0 {
		evt.TimeStamp = time.UnixMilli(int64(e.Time))
	}
	m.doc.Dispatch(evt)
}
