package privacy

import (
	"strings"

	"github.com/hazyhaar/domreplay/dom"
)

// Selector is a small CSS selector: compound parts (tag, #id, .class,
// [attr], [attr=value]) joined by descendant combinators, and comma lists.
type Selector struct {
	alternatives [][]simpleSelector
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasVal  bool
}

// ParseSelector parses sel. Unsupported syntax degrades to matching less.
func ParseSelector(sel string) Selector {
	var s Selector
	for _, alt := range strings.Split(sel, ",") {
		var chain []simpleSelector
		for _, part := range strings.Fields(alt) {
			if part == ">" {
				continue
			}
			chain = append(chain, parseSimpleSelector(part))
		}
		if len(chain) > 0 {
			s.alternatives = append(s.alternatives, chain)
		}
	}
	return s
}

func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector
	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eq := strings.IndexByte(attrPart, '='); eq >= 0 {
			s.attrKey = strings.ToLower(attrPart[:eq])
			s.attrVal = strings.Trim(attrPart[eq+1:], `"'`)
			s.hasVal = true
		} else {
			s.attrKey = strings.ToLower(attrPart)
		}
	}
	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
		if dot := strings.IndexByte(s.id, '.'); dot >= 0 {
			s.classes = strings.Split(s.id[dot+1:], ".")
			s.id = s.id[:dot]
		}
	}
	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.classes = append(s.classes, strings.Split(sel[idx+1:], ".")...)
		sel = sel[:idx]
	}
	if sel != "*" {
		s.tag = strings.ToLower(sel)
	}
	return s
}

func (s simpleSelector) matches(n *dom.Node) bool {
	if n == nil || n.Type() != dom.ElementNode {
		return false
	}
	if s.tag != "" && n.TagName() != s.tag {
		return false
	}
	if s.id != "" && n.GetAttribute("id") != s.id {
		return false
	}
	for _, c := range s.classes {
		if !n.HasClass(c) {
			return false
		}
	}
	if s.attrKey != "" {
		v, ok := n.Attr(s.attrKey)
		if !ok || (s.hasVal && v != s.attrVal) {
			return false
		}
	}
	return true
}

// Matches reports whether n matches any alternative. Descendant parts are
// matched against ancestors within n's own tree, like Element.matches.
func (s Selector) Matches(n *dom.Node) bool {
	for _, chain := range s.alternatives {
		if matchChain(n, chain) {
			return true
		}
	}
	return false
}

func matchChain(n *dom.Node, chain []simpleSelector) bool {
	last := len(chain) - 1
	if !chain[last].matches(n) {
		return false
	}
	i := last - 1
	for cur := n.ParentNode(); cur != nil && i >= 0; cur = cur.ParentNode() {
		if chain[i].matches(cur) {
			i--
		}
	}
	return i < 0
}

// Empty reports whether the selector matches nothing.
func (s Selector) Empty() bool { return len(s.alternatives) == 0 }
