package mutation

import (
	"sort"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/record"
)

// Process converts one batch of notifications into mutation data. It also
// returns how many notifications were discarded by target filtering.
func Process(recs []dom.MutationRecord, cfg Config) (record.MutationData, int) {
	cache := privacy.Cache{}

	for _, m := range recs {
		if m.Type != dom.MutationChildList {
			continue
		}
		for _, removed := range m.RemovedNodes {
			retireShadowRoots(removed, cfg.Shadow)
		}
	}

	var kept []dom.MutationRecord
	for _, m := range recs {
		if !m.Target.IsConnected() || !cfg.Registry.AncestorsSerialized(m.Target) {
			continue
		}
		if cfg.Resolver.Resolve(m.Target, cache) == privacy.Hidden {
			continue
		}
		kept = append(kept, m)
	}
	dropped := len(recs) - len(kept)

	p := &batch{cfg: cfg, cache: cache, serialized: map[int]struct{}{}}
	var childList, texts, attrs []dom.MutationRecord
	for _, m := range kept {
		switch m.Type {
		case dom.MutationChildList:
			childList = append(childList, m)
		case dom.MutationCharacterData:
			texts = append(texts, m)
		case dom.MutationAttributes:
			attrs = append(attrs, m)
		}
	}

	data := record.MutationData{Source: record.SourceMutation}
	data.Adds, data.Removes = p.childList(childList)
	data.Texts = p.texts(texts)
	data.Attributes = p.attributes(attrs)
	return data, dropped
}

func retireShadowRoots(removed *dom.Node, shadow ShadowRoots) {
	if shadow == nil {
		return
	}
	removed.Walk(func(n *dom.Node) bool {
		if sr := n.ShadowRoot(); sr != nil {
			shadow.RemoveShadowRoot(sr)
		}
		return true
	})
}

type batch struct {
	cfg        Config
	cache      privacy.Cache
	serialized map[int]struct{}
}

func (b *batch) hasBeenSerialized(n *dom.Node) bool {
	id, ok := b.cfg.Registry.ID(n)
	if !ok {
		return false
	}
	_, ok = b.serialized[id]
	return ok
}

func (b *batch) childList(recs []dom.MutationRecord) ([]record.AddedNode, []record.RemovedNode) {
	added := map[*dom.Node]bool{}
	var addedOrder []*dom.Node
	removedParent := map[*dom.Node]*dom.Node{}
	var removedOrder []*dom.Node

	for _, m := range recs {
		for _, n := range m.AddedNodes {
			if !added[n] {
				added[n] = true
				addedOrder = append(addedOrder, n)
			}
		}
		for _, n := range m.RemovedNodes {
			if !added[n] {
				if _, seen := removedParent[n]; !seen {
					removedOrder = append(removedOrder, n)
				}
				removedParent[n] = m.Target
			}
			delete(added, n)
		}
	}

	var nodes []*dom.Node
	for _, n := range addedOrder {
		if added[n] {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return dom.ComparePosition(nodes[i], nodes[j]) < 0
	})

	ctx := &serialize.Context{
		Kind:                serialize.Mutation,
		Registry:            b.cfg.Registry,
		Resolver:            b.cfg.Resolver,
		Shadow:              b.cfg.Shadow,
		ActionNameAttribute: b.cfg.ActionNameAttribute,
		Serialized:          b.serialized,
		Logger:              b.cfg.Logger,
	}
	adds := []record.AddedNode{}
	for _, n := range nodes {
		if b.hasBeenSerialized(n) {
			continue
		}
		parent := n.ParentNode()
		if parent == nil || !n.IsConnected() {
			continue
		}
		parentLevel := b.cfg.Resolver.Resolve(parent, b.cache)
		if parentLevel.Sticky() {
			continue
		}
		s := ctx.Node(n, parentLevel)
		if s == nil {
			continue
		}
		parentID, ok := b.cfg.Registry.ID(parent)
		if !ok {
			continue
		}
		adds = append(adds, record.AddedNode{
			ParentID: parentID,
			NextID:   b.nextID(n, added),
			Node:     s,
		})
	}

	removes := []record.RemovedNode{}
	for _, n := range removedOrder {
		parent := removedParent[n]
		id, ok := b.cfg.Registry.ID(n)
		if !ok {
			continue
		}
		parentID, ok := b.cfg.Registry.ID(parent)
		if !ok {
			continue
		}
		removes = append(removes, record.RemovedNode{ParentID: parentID, ID: id})
	}
	return adds, removes
}

// nextID returns the id of the closest following sibling the player will
// already hold when this add is applied: known to the registry and not
// waiting to be added later in the same batch.
func (b *batch) nextID(n *dom.Node, pending map[*dom.Node]bool) *int {
	for s := n.NextSibling(); s != nil; s = s.NextSibling() {
		if pending[s] && !b.hasBeenSerialized(s) {
			continue
		}
		if id, ok := b.cfg.Registry.ID(s); ok {
			return &id
		}
	}
	return nil
}

func (b *batch) texts(recs []dom.MutationRecord) []record.TextMutation {
	out := []record.TextMutation{}
	handled := map[*dom.Node]bool{}
	for _, m := range recs {
		n := m.Target
		if handled[n] {
			continue
		}
		handled[n] = true
		if b.hasBeenSerialized(n) {
			continue
		}
		if m.OldValue != nil && *m.OldValue == n.Data() {
			continue
		}
		id, ok := b.cfg.Registry.ID(n)
		if !ok {
			continue
		}
		parentLevel := b.cfg.Resolver.Resolve(n.LogicalParent(), b.cache)
		if parentLevel.Sticky() {
			continue
		}
		tm := record.TextMutation{ID: id}
		if v, ok := serialize.TextContent(n, false, parentLevel); ok {
			tm.Value = &v
		}
		out = append(out, tm)
	}
	return out
}

func (b *batch) attributes(recs []dom.MutationRecord) []record.AttributeMutation {
	out := []record.AttributeMutation{}
	index := map[*dom.Node]int{}
	handled := map[*dom.Node]map[string]bool{}
	ctx := &serialize.Context{Kind: serialize.Mutation, ActionNameAttribute: b.cfg.ActionNameAttribute}
	for _, m := range recs {
		n := m.Target
		if handled[n] == nil {
			handled[n] = map[string]bool{}
		}
		if handled[n][m.AttributeName] {
			continue
		}
		handled[n][m.AttributeName] = true
		if b.hasBeenSerialized(n) {
			continue
		}
		current, present := n.Attr(m.AttributeName)
		if (m.OldValue == nil && !present) || (m.OldValue != nil && present && *m.OldValue == current) {
			continue
		}
		level := b.cfg.Resolver.Resolve(n, b.cache)
		var value *string
		if m.AttributeName == "value" {
			v, ok := serialize.InputValue(n, level)
			if !ok {
				continue
			}
			value = &v
		} else if v, ok := ctx.Attribute(n, level, m.AttributeName); ok {
			value = &v
		}
		id, ok := b.cfg.Registry.ID(n)
		if !ok {
			continue
		}
		i, seen := index[n]
		if !seen {
			i = len(out)
			index[n] = i
			out = append(out, record.AttributeMutation{ID: id, Attributes: map[string]*string{}})
		}
		out[i].Attributes[m.AttributeName] = value
	}
	return out
}
