package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/record"
)

var interactionTypes = map[string]record.MouseInteractionType{
	dom.EventPointerUp:   record.MouseUp,
	dom.EventMouseDown:   record.MouseDown,
	dom.EventClick:       record.Click,
	dom.EventContextMenu: record.ContextMenu,
	dom.EventDblClick:    record.DblClick,
	dom.EventFocus:       record.FocusIn,
	dom.EventBlur:        record.BlurOut,
	dom.EventTouchStart:  record.TouchStart,
	dom.EventTouchEnd:    record.TouchEnd,
}

// Interaction records clicks, presses, touches and element focus changes.
// Every record carries the correlation id of its raw event.
type Interaction struct {
	cfg       Config
	listeners listeners
}

// TrackInteraction starts the interaction tracker on the document.
func TrackInteraction(cfg Config) *Interaction {
	cfg.defaults()
	t := &Interaction{cfg: cfg}
	for typ := range interactionTypes {
		t.listeners.add(cfg.Doc.AddEventListener(cfg.Doc.Node(), typ, t.record))
	}
	return t
}

func (t *Interaction) record(evt *dom.Event) {
	id, ok := t.cfg.recordable(evt.EffectiveTarget())
	if !ok {
		return
	}
	kind := interactionTypes[evt.Type]
	data := record.MouseInteractionData{Source: record.SourceMouseInteraction, Type: kind, ID: id}
	if kind != record.FocusIn && kind != record.BlurOut {
		x, y := layoutCoordinates(t.cfg.Doc, evt.ClientX, evt.ClientY)
		data.X, data.Y = &x, &y
	}
	rec := record.Incremental(t.cfg.now(), data)
	rid := t.cfg.RecordIDs.IDFor(evt)
	rec.ID = &rid
	t.cfg.Emit(rec)
}

func (t *Interaction) Stop() { t.listeners.stop() }
