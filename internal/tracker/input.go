package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/internal/weakmap"
	"github.com/hazyhaar/domreplay/record"
)

type inputState struct {
	checkable bool
	text      string
	checked   bool
}

func (s inputState) data(id int) record.InputData {
	d := record.InputData{Source: record.SourceInput, ID: id}
	if s.checkable {
		checked := s.checked
		d.IsChecked = &checked
	} else {
		text := s.text
		d.Text = &text
	}
	return d
}

// Input records form control values. Besides input and change events it
// watches value, checked and selectedIndex assignments made by scripts,
// which fire no event.
type Input struct {
	cfg       Config
	last      *weakmap.Map[dom.Node, inputState]
	listeners listeners
}

// TrackInput starts the input tracker on scope: the document node or a
// shadow root. Input events are composed and reach the document; shadow
// roots only need change events. Setter hooks are document-wide and only
// installed for the document scope.
func TrackInput(cfg Config, scope *dom.Node) *Input {
	cfg.defaults()
	t := &Input{cfg: cfg, last: weakmap.New[dom.Node, inputState]()}
	types := []string{dom.EventInput, dom.EventChange}
	if scope.IsShadowRoot() {
		types = []string{dom.EventChange}
	}
	for _, typ := range types {
		t.listeners.add(cfg.Doc.AddEventListener(scope, typ, func(evt *dom.Event) {
			t.onChange(evt.EffectiveTarget())
		}))
	}
	if !scope.IsShadowRoot() {
		t.listeners.add(cfg.Doc.OnPropertySet(func(n *dom.Node, _ string) {
			t.onChange(n)
		}))
	}
	return t
}

func isInputElement(n *dom.Node) bool {
	if n == nil || n.Type() != dom.ElementNode {
		return false
	}
	switch n.TagName() {
	case "input", "textarea", "select":
		return true
	}
	return false
}

func (t *Input) onChange(target *dom.Node) {
	if !isInputElement(target) || !t.cfg.Registry.Has(target) {
		return
	}
	level := t.cfg.Resolver.Resolve(target, nil)
	if level == privacy.Hidden {
		return
	}
	typ := target.InputType()
	var state inputState
	if typ == "radio" || typ == "checkbox" {
		if privacy.ShouldMask(target, level) {
			return
		}
		state = inputState{checkable: true, checked: target.Checked()}
	} else {
		value, ok := serialize.InputValue(target, level)
		if !ok {
			return
		}
		state = inputState{text: value}
	}
	t.emit(target, state)

	if typ == "radio" && target.Name() != "" && target.Checked() {
		for _, other := range target.RadioGroup() {
			if other != target {
				t.emit(other, inputState{checkable: true, checked: false})
			}
		}
	}
}

func (t *Input) emit(n *dom.Node, state inputState) {
	if prev, ok := t.last.Get(n); ok && prev == state {
		return
	}
	id, ok := t.cfg.Registry.ID(n)
	if !ok {
		return
	}
	t.last.Set(n, state)
	t.cfg.emitIncremental(state.data(id))
}

func (t *Input) Stop() { t.listeners.stop() }
