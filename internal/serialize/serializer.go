// CLAUDE:SUMMARY Serializes document subtrees into privacy-redacted replay nodes with stable ids.
// Package serialize turns live nodes into privacy-filtered replay nodes.
//
// Serialization assigns ids through the node registry as it goes, so a
// serialized subtree is immediately addressable by later incremental
// records. Shadow roots met on the way are handed to the shadow controller
// so their own mutation and input observers start.
package serialize

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/record"
)

// Kind is the situation a serialization happens in.
type Kind int

const (
	// InitialFullSnapshot records element scroll offsets into the ScrollMap.
	InitialFullSnapshot Kind = iota
	// SubsequentFullSnapshot reads scroll offsets back from the ScrollMap.
	SubsequentFullSnapshot
	// Mutation skips scroll offsets entirely.
	Mutation
)

// ShadowRootAdder receives every shadow root serialized.
type ShadowRootAdder interface {
	AddShadowRoot(root *dom.Node)
}

// Context carries the per-pass collaborators of a serialization.
type Context struct {
	Kind     Kind
	Registry *nodeid.Registry
	Resolver *privacy.Resolver
	Scroll   *ScrollMap
	Shadow   ShadowRootAdder

	// ActionNameAttribute is an extra attribute exempt from masking.
	ActionNameAttribute string

	// Serialized collects the ids produced by this pass when non-nil.
	Serialized map[int]struct{}

	Logger *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Document serializes a whole document. The document node's parent level
// is the resolver default.
func (c *Context) Document(d *dom.Document) *record.Document {
	n := c.Node(d.Node(), c.Resolver.Default())
	doc, _ := n.(*record.Document)
	return doc
}

// Node serializes n and its subtree, assigning ids. It returns nil when n
// is omitted (ignored element, comment, dropped text).
func (c *Context) Node(n *dom.Node, parentLevel privacy.Level) record.Node {
	return c.nodeWithID(n, parentLevel, false)
}

func (c *Context) nodeWithID(n *dom.Node, parentLevel privacy.Level, ignoreWhiteSpace bool) (out record.Node) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Warn("serialize: node failed", "tag", n.TagName(), "panic", fmt.Sprint(r))
			out = nil
		}
	}()
	var s record.Node
	switch n.Type() {
	case dom.DocumentNode:
		s = &record.Document{ChildNodes: c.children(n, parentLevel, false)}
	case dom.DocumentFragmentNode:
		s = c.fragment(n, parentLevel)
	case dom.DocumentTypeNode:
		name, pub, sys := n.DoctypeName()
		s = &record.DocumentType{Name: name, PublicID: pub, SystemID: sys}
	case dom.ElementNode:
		s = c.element(n, parentLevel)
	case dom.TextNode:
		text, ok := TextContent(n, ignoreWhiteSpace, parentLevel)
		if ok {
			s = &record.Text{TextContent: text}
		}
	case dom.CDATASectionNode:
		s = &record.CDATA{}
	}
	if s == nil {
		return nil
	}
	id := c.Registry.GetOrAssign(n)
	setID(s, id)
	if c.Serialized != nil {
		c.Serialized[id] = struct{}{}
	}
	return s
}

func setID(s record.Node, id int) {
	switch v := s.(type) {
	case *record.Document:
		v.ID = id
	case *record.DocumentType:
		v.ID = id
	case *record.Element:
		v.ID = id
	case *record.Text:
		v.ID = id
	case *record.CDATA:
		v.ID = id
	case *record.DocumentFragment:
		v.ID = id
	}
}

func (c *Context) fragment(n *dom.Node, parentLevel privacy.Level) record.Node {
	isShadow := n.IsShadowRoot()
	if isShadow && c.Shadow != nil {
		c.Shadow.AddShadowRoot(n)
	}
	return &record.DocumentFragment{
		ChildNodes:   c.children(n, parentLevel, false),
		IsShadowRoot: isShadow,
	}
}

// children serializes light children then the shadow root of a host.
func (c *Context) children(n *dom.Node, level privacy.Level, ignoreWhiteSpace bool) []record.Node {
	out := []record.Node{}
	for _, child := range n.ChildNodes() {
		if s := c.nodeWithID(child, level, ignoreWhiteSpace); s != nil {
			out = append(out, s)
		}
	}
	if sr := n.ShadowRoot(); sr != nil {
		if s := c.nodeWithID(sr, level, ignoreWhiteSpace); s != nil {
			out = append(out, s)
		}
	}
	return out
}

var invalidTagChars = regexp.MustCompile(`[^a-z1-6\-_]`)

// ValidTagName lower-cases tag and falls back to div for names the player
// cannot recreate.
func ValidTagName(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	if invalidTagChars.MatchString(t) {
		return "div"
	}
	return t
}

func (c *Context) element(n *dom.Node, parentLevel privacy.Level) record.Node {
	tag := ValidTagName(n.TagName())
	level := c.Resolver.ResolveWithParent(n, parentLevel)
	if level == privacy.Hidden {
		w, h := n.Rect()
		return &record.Element{
			TagName: tag,
			Attributes: record.Attributes{
				"rr_width":       formatNumber(w) + "px",
				"rr_height":      formatNumber(h) + "px",
				privacy.AttrName: string(privacy.Hidden),
			},
			ChildNodes: []record.Node{},
			IsSVG:      n.IsSVG(),
		}
	}
	if level == privacy.Ignore {
		return nil
	}
	el := &record.Element{
		TagName:    tag,
		Attributes: c.attributes(n, level),
		ChildNodes: []record.Node{},
		IsSVG:      n.IsSVG(),
	}
	if tag != "style" && (n.HasChildNodes() || n.IsShadowHost()) {
		el.ChildNodes = c.children(n, level, tag == "head")
	}
	return el
}
