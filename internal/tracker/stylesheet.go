package tracker

import (
	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/record"
)

// StyleSheet records insertRule and deleteRule calls on sheets owned by
// serialized elements. Changes inside grouping rules are located by the
// index path from the sheet down to the rule.
type StyleSheet struct {
	cfg       Config
	listeners listeners
}

// TrackStyleSheet starts the stylesheet tracker.
func TrackStyleSheet(cfg Config) *StyleSheet {
	cfg.defaults()
	t := &StyleSheet{cfg: cfg}
	t.listeners.add(cfg.Doc.OnStyleSheetChange(t.record))
	return t
}

func (t *StyleSheet) record(c dom.RuleChange) {
	owner := c.Sheet.OwnerNode()
	id, ok := t.cfg.Registry.ID(owner)
	if !ok {
		return
	}
	index := record.RuleIndex{c.Index}
	if c.Parent != nil {
		index = append(record.RuleIndex(c.Parent.Path()), c.Index)
	}
	data := record.StyleSheetRuleData{Source: record.SourceStyleSheetRule, ID: id}
	switch c.Op {
	case dom.RuleInserted:
		data.Adds = []record.StyleSheetAdd{{Rule: c.Rule, Index: index}}
	case dom.RuleDeleted:
		data.Removes = []record.StyleSheetDelete{{Index: index}}
	}
	t.cfg.emitIncremental(data)
}

func (t *StyleSheet) Stop() { t.listeners.stop() }
