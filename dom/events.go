package dom

import "time"

// Common event types seen by the recorder.
const (
	EventMouseMove   = "mousemove"
	EventTouchMove   = "touchmove"
	EventPointerUp   = "pointerup"
	EventMouseDown   = "mousedown"
	EventClick       = "click"
	EventContextMenu = "contextmenu"
	EventDblClick    = "dblclick"
	EventFocus       = "focus"
	EventBlur        = "blur"
	EventTouchStart  = "touchstart"
	EventTouchEnd    = "touchend"
	EventScroll      = "scroll"
	EventResize      = "resize"
	EventInput       = "input"
	EventChange      = "change"
	EventPlay        = "play"
	EventPause       = "pause"

	EventVisualViewportResize = "visualviewport:resize"
	EventVisualViewportScroll = "visualviewport:scroll"

	EventBeforeUnload     = "beforeunload"
	EventPageHide         = "pagehide"
	EventVisibilityChange = "visibilitychange"
	EventFreeze           = "freeze"
)

// Event is a dispatched platform event. A nil Target denotes a window-level
// event (resize, window focus, page lifecycle).
type Event struct {
	Type      string
	Target    *Node
	Composed  bool
	ClientX   float64
	ClientY   float64
	TimeStamp time.Time

	// Hidden is set on visibilitychange when the document became hidden.
	Hidden bool

	// Retargeted is the target as seen from the listener's scope: the
	// shadow host when the original target lives in a nested shadow tree.
	Retargeted *Node
}

// EffectiveTarget returns the node an observer should attribute the event
// to. Composed events reaching a host resolve to the original target.
func (e *Event) EffectiveTarget() *Node {
	t := e.Retargeted
	if t == nil {
		return e.Target
	}
	if e.Composed && t.IsShadowHost() {
		return e.Target
	}
	return t
}

type listener struct {
	id      int
	scope   *Node
	typ     string
	fn      func(*Event)
	removed bool
}

// AddEventListener registers fn for events of typ crossing scope, in
// capture phase. scope is the document node, a shadow root, or nil for the
// window. The returned function removes the listener.
func (d *Document) AddEventListener(scope *Node, typ string, fn func(*Event)) (remove func()) {
	d.nextHook++
	l := &listener{id: d.nextHook, scope: scope, typ: typ, fn: fn}
	d.listeners = append(d.listeners, l)
	return func() {
		l.removed = true
		kept := d.listeners[:0]
		for _, other := range d.listeners {
			if other != l {
				kept = append(kept, other)
			}
		}
		d.listeners = kept
	}
}

// Dispatch delivers evt to the listeners of every scope on its propagation
// path. Non-composed events stop at the root of the target's tree; composed
// events continue through each host up to the document and the window.
func (d *Document) Dispatch(evt *Event) {
	if evt.TimeStamp.IsZero() {
		evt.TimeStamp = time.Now()
	}
	type hop struct {
		scope  *Node
		target *Node
	}
	var path []hop
	if evt.Target != nil {
		target := evt.Target
		for {
			root := target.Root()
			path = append(path, hop{scope: root, target: target})
			if !root.IsShadowRoot() || !evt.Composed {
				break
			}
			target = root.host
		}
		last := path[len(path)-1]
		if last.scope == d.root {
			path = append(path, hop{scope: nil, target: last.target})
		}
	} else {
		path = []hop{{scope: nil}}
	}
	for _, h := range path {
		for _, l := range append([]*listener(nil), d.listeners...) {
			if l.removed || l.typ != evt.Type || l.scope != h.scope {
				continue
			}
			evt.Retargeted = h.target
			l.fn(evt)
		}
	}
}

type propertyHook struct {
	id int
	fn func(n *Node, prop string)
}

// OnPropertySet registers fn to run after a page script assigns value,
// checked or selectedIndex on a form control. It mirrors instrumented
// prototype setters.
func (d *Document) OnPropertySet(fn func(n *Node, prop string)) (remove func()) {
	d.nextHook++
	h := &propertyHook{id: d.nextHook, fn: fn}
	d.setHooks = append(d.setHooks, h)
	return func() {
		kept := d.setHooks[:0]
		for _, other := range d.setHooks {
			if other != h {
				kept = append(kept, other)
			}
		}
		d.setHooks = kept
	}
}

func (d *Document) notifyPropertySet(n *Node, prop string) {
	for _, h := range append([]*propertyHook(nil), d.setHooks...) {
		h.fn(n, prop)
	}
}
