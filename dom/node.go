// CLAUDE:SUMMARY Live document model: node tree, shadow roots, form state, stylesheets, mutation observers and event dispatch.
// Package dom is the live document model observed by the replay recorder.
//
// It mirrors the subset of the browser DOM the capture engine depends on:
// a node tree with shadow roots, attributes, character data, form-control
// state, scroll offsets, geometry and stylesheets, plus mutation observers,
// event listeners and property-setter hooks. A Document is driven by a host
// (an HTML parser, a CDP mirror of a real Chrome page, or a test) that
// mutates it inside Document.Run turns.
package dom

import (
	"slices"
	"strings"
)

// NodeType follows the DOM nodeType numbering.
type NodeType int

const (
	ElementNode          NodeType = 1
	TextNode             NodeType = 3
	CDATASectionNode     NodeType = 4
	CommentNode          NodeType = 8
	DocumentNode         NodeType = 9
	DocumentTypeNode     NodeType = 10
	DocumentFragmentNode NodeType = 11
)

// Attribute is a single element attribute in source order.
type Attribute struct {
	Name  string
	Value string
}

// Node is one node of a Document. The zero value is not usable; nodes are
// created through the Document factory methods.
type Node struct {
	typ      NodeType
	doc      *Document
	parent   *Node
	children []*Node

	// element
	tag   string
	attrs []Attribute
	svg   bool

	// text, comment, cdata
	data string

	// doctype
	name, publicID, systemID string

	// shadow DOM: shadow is set on hosts, host on shadow roots.
	shadow *Node
	host   *Node
	mode   string

	// live state
	value         *string
	checked       *bool
	selectedIndex int
	selectedDirty bool
	scrollTop     float64
	scrollLeft    float64
	width, height float64
	paused        bool
	sheet         *StyleSheet
}

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// OwnerDocument returns the document that created the node.
func (n *Node) OwnerDocument() *Document { return n.doc }

// TagName returns the lower-case tag name of an element, "" otherwise.
func (n *Node) TagName() string { return n.tag }

// IsSVG reports whether the element lives in the SVG namespace.
func (n *Node) IsSVG() bool { return n.svg }

// Data returns the character data of a text, comment or CDATA node.
func (n *Node) Data() string { return n.data }

// DoctypeName returns the doctype name, public id and system id.
func (n *Node) DoctypeName() (name, publicID, systemID string) {
	return n.name, n.publicID, n.systemID
}

// ParentNode returns the tree parent. Shadow roots have no parent node.
func (n *Node) ParentNode() *Node { return n.parent }

// LogicalParent returns the tree parent, or the host for a shadow root.
func (n *Node) LogicalParent() *Node {
	if n.parent != nil {
		return n.parent
	}
	return n.host
}

// ParentElement returns the parent if it is an element.
func (n *Node) ParentElement() *Node {
	if n.parent != nil && n.parent.typ == ElementNode {
		return n.parent
	}
	return nil
}

// ChildNodes returns a copy of the child list.
func (n *Node) ChildNodes() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// HasChildNodes reports whether the node has at least one child.
func (n *Node) HasChildNodes() bool { return len(n.children) > 0 }

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// NextSibling returns the next sibling or nil.
func (n *Node) NextSibling() *Node {
	if n.parent == nil {
		return nil
	}
	i := n.parent.indexOf(n)
	if i < 0 || i+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[i+1]
}

// PreviousSibling returns the previous sibling or nil.
func (n *Node) PreviousSibling() *Node {
	if n.parent == nil {
		return nil
	}
	i := n.parent.indexOf(n)
	if i <= 0 {
		return nil
	}
	return n.parent.children[i-1]
}

// ShadowRoot returns the attached shadow root of a host, or nil.
func (n *Node) ShadowRoot() *Node { return n.shadow }

// Host returns the host element of a shadow root, or nil.
func (n *Node) Host() *Node { return n.host }

// IsShadowRoot reports whether n is a shadow root.
func (n *Node) IsShadowRoot() bool {
	return n.typ == DocumentFragmentNode && n.host != nil
}

// IsShadowHost reports whether n hosts a shadow root.
func (n *Node) IsShadowHost() bool { return n.shadow != nil }

// IsConnected reports whether the node is reachable from its document,
// crossing shadow boundaries through hosts.
func (n *Node) IsConnected() bool {
	for cur := n; cur != nil; cur = cur.LogicalParent() {
		if cur.typ == DocumentNode {
			return cur == n.doc.root
		}
	}
	return false
}

// Contains reports whether other is an inclusive descendant of n in the
// same tree (shadow boundaries are not crossed).
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Root returns the root of the node's tree: the document, a shadow root, or
// the top of a detached subtree.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// TextContent concatenates descendant text for elements and returns the
// data for character nodes.
func (n *Node) TextContent() string {
	switch n.typ {
	case TextNode, CDATASectionNode, CommentNode:
		return n.data
	case DocumentNode, DocumentTypeNode:
		return ""
	}
	var b strings.Builder
	var walk func(*Node)
	walk = func(c *Node) {
		for _, ch := range c.children {
			switch ch.typ {
			case TextNode, CDATASectionNode:
				b.WriteString(ch.data)
			case ElementNode:
				walk(ch)
			}
		}
	}
	walk(n)
	return b.String()
}

// Attributes returns a copy of the attribute list in source order.
func (n *Node) Attributes() []Attribute {
	out := make([]Attribute, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Attr returns the attribute value and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// GetAttribute returns the attribute value or "".
func (n *Node) GetAttribute(name string) string {
	v, _ := n.Attr(name)
	return v
}

// HasAttribute reports whether the attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// HasClass reports whether the class attribute lists cls.
func (n *Node) HasClass(cls string) bool {
	for _, c := range strings.Fields(n.GetAttribute("class")) {
		if c == cls {
			return true
		}
	}
	return false
}

// SetAttribute sets an attribute and queues an attributes mutation record.
func (n *Node) SetAttribute(name, value string) {
	if n.typ != ElementNode {
		return
	}
	name = strings.ToLower(name)
	old, had := n.Attr(name)
	if had {
		for i := range n.attrs {
			if n.attrs[i].Name == name {
				n.attrs[i].Value = value
			}
		}
	} else {
		n.attrs = append(n.attrs, Attribute{Name: name, Value: value})
	}
	n.doc.queueMutation(MutationRecord{
		Type:          MutationAttributes,
		Target:        n,
		AttributeName: name,
		OldValue:      optional(old, had),
	})
}

// RemoveAttribute removes an attribute and queues a mutation if it existed.
func (n *Node) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			n.doc.queueMutation(MutationRecord{
				Type:          MutationAttributes,
				Target:        n,
				AttributeName: name,
				OldValue:      &a.Value,
			})
			return
		}
	}
}

// SetData replaces the character data of a text, comment or CDATA node.
func (n *Node) SetData(data string) {
	switch n.typ {
	case TextNode, CommentNode, CDATASectionNode:
	default:
		return
	}
	old := n.data
	n.data = data
	if p := n.parent; p != nil && p.tag == "style" {
		p.sheet = nil
	}
	n.doc.queueMutation(MutationRecord{
		Type:     MutationCharacterData,
		Target:   n,
		OldValue: &old,
	})
}

// AppendChild appends child to n, detaching it from its previous parent.
func (n *Node) AppendChild(child *Node) *Node {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref (append when ref is nil). A
// DocumentFragment child contributes its children.
func (n *Node) InsertBefore(child, ref *Node) *Node {
	if child == nil || child == n || child.Contains(n) {
		return child
	}
	if ref == child {
		ref = child.NextSibling()
	}
	if ref != nil && ref.parent != n {
		ref = nil
	}
	var added []*Node
	if child.typ == DocumentFragmentNode && child.host == nil {
		added = child.ChildNodes()
		for _, c := range added {
			child.detach(c)
		}
	} else {
		if child.parent != nil {
			child.parent.RemoveChild(child)
		}
		added = []*Node{child}
	}
	if len(added) == 0 {
		return child
	}
	var prev *Node
	idx := len(n.children)
	if ref != nil {
		if i := n.indexOf(ref); i >= 0 {
			idx = i
		}
	}
	if idx > 0 {
		prev = n.children[idx-1]
	}
	rest := append([]*Node(nil), n.children[idx:]...)
	n.children = append(n.children[:idx], added...)
	n.children = append(n.children, rest...)
	for _, c := range added {
		c.parent = n
	}
	if n.tag == "style" {
		n.sheet = nil
	}
	n.doc.queueMutation(MutationRecord{
		Type:            MutationChildList,
		Target:          n,
		AddedNodes:      added,
		PreviousSibling: prev,
		NextSibling:     ref,
	})
	return child
}

// RemoveChild removes child from n and queues a childList mutation.
func (n *Node) RemoveChild(child *Node) *Node {
	idx := n.indexOf(child)
	if idx < 0 {
		return child
	}
	prev := child.PreviousSibling()
	next := child.NextSibling()
	n.detach(child)
	if n.tag == "style" {
		n.sheet = nil
	}
	n.doc.queueMutation(MutationRecord{
		Type:            MutationChildList,
		Target:          n,
		RemovedNodes:    []*Node{child},
		PreviousSibling: prev,
		NextSibling:     next,
	})
	return child
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// AttachShadow creates an open shadow root on an element. Attaching twice
// returns the existing root.
func (n *Node) AttachShadow(mode string) *Node {
	if n.typ != ElementNode {
		return nil
	}
	if n.shadow != nil {
		return n.shadow
	}
	if mode == "" {
		mode = "open"
	}
	root := n.doc.newNode(DocumentFragmentNode)
	root.host = n
	root.mode = mode
	n.shadow = root
	return root
}

// DetachShadow drops the shadow root of a host. Browsers never do this; the
// CDP mirror needs it when Chrome pops a shadow root.
func (n *Node) DetachShadow() {
	if n.shadow != nil {
		n.shadow.host = nil
		n.shadow = nil
	}
}

// ShadowMode returns "open" or "closed" for shadow roots.
func (n *Node) ShadowMode() string { return n.mode }

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) detach(child *Node) {
	idx := n.indexOf(child)
	if idx < 0 {
		return
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	child.parent = nil
}

// Walk calls fn for n and every descendant in document order, descending
// into shadow roots after the light children. Returning false skips the
// subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.ChildNodes() {
		c.Walk(fn)
	}
	if n.shadow != nil {
		n.shadow.Walk(fn)
	}
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
