package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/record"
)

// Media records play and pause of audio and video elements.
type Media struct {
	cfg       Config
	listeners listeners
}

// TrackMedia starts the media tracker on the document.
func TrackMedia(cfg Config) *Media {
	cfg.defaults()
	t := &Media{cfg: cfg}
	kinds := map[string]record.MediaInteractionType{
		dom.EventPlay:  record.MediaPlay,
		dom.EventPause: record.MediaPause,
	}
	for typ, kind := range kinds {
		t.listeners.add(cfg.Doc.AddEventListener(cfg.Doc.Node(), typ, func(evt *dom.Event) {
			id, ok := t.cfg.recordable(evt.EffectiveTarget())
			if !ok {
				return
			}
			t.cfg.emitIncremental(record.MediaInteractionData{Source: record.SourceMediaInteraction, ID: id, Type: kind})
		}))
	}
	return t
}

func (t *Media) Stop() { t.listeners.stop() }
