package privacy

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
)

// Rule assigns Level to elements matching Selector.
type Rule struct {
	Selector string `yaml:"selector"`
	Level    Level  `yaml:"level"`
}

// Cache memoizes resolved levels for the duration of one pass or batch.
type Cache map[*dom.Node]Level

// Resolver computes privacy levels for one recording.
type Resolver struct {
	def    Level
	rules  []compiledRule
	ignore *ignoreMatcher
}

type compiledRule struct {
	sel   Selector
	level Level
}

// NewResolver builds a resolver. def is the level of the document root's
// parent; a nil policy selects DefaultIgnorePolicy.
func NewResolver(def Level, rules []Rule, policy *IgnorePolicy) (*Resolver, error) {
	if def == "" {
		def = Mask
	}
	if _, err := ParseLevel(string(def)); err != nil {
		return nil, err
	}
	p := DefaultIgnorePolicy()
	if policy != nil {
		p = *policy
	}
	ig, err := compileIgnore(p)
	if err != nil {
		return nil, err
	}
	r := &Resolver{def: def, ignore: ig}
	for _, rule := range rules {
		lvl, err := ParseLevel(string(rule.Level))
		if err != nil {
			return nil, fmt.Errorf("privacy: rule %q: %w", rule.Selector, err)
		}
		sel := ParseSelector(rule.Selector)
		if sel.Empty() {
			return nil, fmt.Errorf("privacy: rule: empty selector")
		}
		r.rules = append(r.rules, compiledRule{sel: sel, level: lvl})
	}
	return r, nil
}

// Default returns the configured default level.
func (r *Resolver) Default() Level { return r.def }

// SelfLevel returns the level n declares on its own, or "".
func (r *Resolver) SelfLevel(n *dom.Node) Level {
	if n.Type() != dom.ElementNode {
		return ""
	}
	tag := n.TagName()
	if tag == "base" {
		return Allow
	}
	if tag == "input" {
		switch n.InputType() {
		case "password", "email", "tel", "hidden":
			return Mask
		}
		if strings.HasPrefix(strings.ToLower(n.GetAttribute("autocomplete")), "cc-") {
			return Mask
		}
	}
	attr, hasAttr := n.Attr(AttrName)
	for _, lvl := range []Level{Hidden, MaskUserInput, Mask, Allow} {
		if (hasAttr && Level(attr) == lvl) || n.HasClass(ClassPrefix+string(lvl)) {
			return lvl
		}
	}
	for _, rule := range r.rules {
		if rule.sel.Matches(n) {
			return rule.level
		}
	}
	if r.ignore.ignored(n) {
		return Ignore
	}
	return ""
}

// Resolve returns the effective level of n, walking logical parents (a
// shadow root's parent is its host). cache may be nil.
func (r *Resolver) Resolve(n *dom.Node, cache Cache) Level {
	if n == nil {
		return r.def
	}
	if lvl, ok := cache[n]; ok {
		return lvl
	}
	parent := r.def
	if p := n.LogicalParent(); p != nil {
		parent = r.Resolve(p, cache)
	}
	lvl := Reduce(r.SelfLevel(n), parent)
	if cache != nil {
		cache[n] = lvl
	}
	return lvl
}

// ResolveWithParent reduces n's own level against an already known parent
// level, which is how a recursive serializer walks the tree.
func (r *Resolver) ResolveWithParent(n *dom.Node, parent Level) Level {
	return Reduce(r.SelfLevel(n), parent)
}
