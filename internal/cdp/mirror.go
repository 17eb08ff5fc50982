// CLAUDE:SUMMARY Mirrors a Chrome page into a dom.Document from CDP DOM events and an injected event binding.
// Package cdp keeps a dom.Document in sync with a Chrome page.
//
// The mirror is seeded from DOM.getDocument (depth -1, pierce) and then
// follows the DOM domain events. User events are forwarded by an injected
// script through a Runtime binding and dispatched on the mirror, so the
// recorder observes the page exactly as it observes any other document.
package cdp

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domreplay/dom"
)

// Mirror maps CDP node ids to nodes of a dom.Document. Every apply method
// must run inside the document turn.
type Mirror struct {
	doc    *dom.Document
	nodes  map[proto.DOMNodeID]*dom.Node
	ids    map[*dom.Node]proto.DOMNodeID
	logger *slog.Logger

	updated chan struct{}
}

// NewMirror builds a document from a DOM.getDocument root.
func NewMirror(root *proto.DOMNode, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	href := root.DocumentURL
	if href == "" {
		href = root.BaseURL
	}
	m := &Mirror{
		doc:     dom.NewDocument(href),
		logger:  logger,
		updated: make(chan struct{}, 1),
	}
	m.doc.Run(func() { m.reset(root) })
	return m
}

// Document returns the mirrored document.
func (m *Mirror) Document() *dom.Document { return m.doc }

// Updated signals DOM.documentUpdated: the page navigated or reloaded and
// the mirror no longer tracks it. Callers re-attach.
func (m *Mirror) Updated() <-chan struct{} { return m.updated }

// Node returns the mirrored node of a CDP node id.
func (m *Mirror) Node(id proto.DOMNodeID) (*dom.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Len returns the number of tracked nodes.
func (m *Mirror) Len() int { return len(m.nodes) }

func (m *Mirror) reset(root *proto.DOMNode) {
	for c := m.doc.Node().FirstChild(); c != nil; c = m.doc.Node().FirstChild() {
		c.Remove()
	}
	m.nodes = map[proto.DOMNodeID]*dom.Node{root.NodeID: m.doc.Node()}
	m.ids = map[*dom.Node]proto.DOMNodeID{m.doc.Node(): root.NodeID}
	m.appendChildren(m.doc.Node(), root)
}

// build creates the node for n and its subtree. It returns nil for nodes
// the mirror does not track: pseudo elements and user-agent shadow roots.
func (m *Mirror) build(n *proto.DOMNode) *dom.Node {
	var node *dom.Node
	switch n.NodeType {
	case 1:
		tag := n.LocalName
		if tag == "" {
			tag = strings.ToLower(n.NodeName)
		}
		node = m.doc.CreateElementNS(tag, n.IsSVG)
		for i := 0; i+1 < len(n.Attributes); i += 2 {
			node.SetAttribute(n.Attributes[i], n.Attributes[i+1])
		}
		for _, sr := range n.ShadowRoots {
			m.attachShadow(node, sr)
		}
	case 3:
		node = m.doc.CreateTextNode(n.NodeValue)
	case 4:
		node = m.doc.CreateCDATASection(n.NodeValue)
	case 8:
		node = m.doc.CreateComment(n.NodeValue)
	case 10:
		node = m.doc.CreateDocumentType(n.NodeName, n.PublicID, n.SystemID)
	default:
		m.logger.Debug("cdp: untracked node", "type", n.NodeType, "name", n.NodeName)
		return nil
	}
	m.track(n.NodeID, node)
	m.appendChildren(node, n)
	return node
}

func (m *Mirror) appendChildren(parent *dom.Node, n *proto.DOMNode) {
	for _, c := range n.Children {
		if child := m.build(c); child != nil {
			parent.AppendChild(child)
		}
	}
}

func (m *Mirror) attachShadow(host *dom.Node, root *proto.DOMNode) {
	mode := string(root.ShadowRootType)
	if mode != "open" && mode != "closed" {
		return
	}
	sr := host.AttachShadow(mode)
	m.track(root.NodeID, sr)
	m.appendChildren(sr, root)
}

func (m *Mirror) track(id proto.DOMNodeID, n *dom.Node) {
	m.nodes[id] = n
	m.ids[n] = id
}

func (m *Mirror) forget(n *dom.Node) {
	n.Walk(func(c *dom.Node) bool {
		if id, ok := m.ids[c]; ok {
			delete(m.nodes, id)
			delete(m.ids, c)
		}
		return true
	})
}

func (m *Mirror) lookup(id proto.DOMNodeID, event string) (*dom.Node, bool) {
	n, ok := m.nodes[id]
	if !ok {
		m.logger.Debug("cdp: unknown node", "event", event, "node", id)
	}
	return n, ok
}

// ChildNodeInserted inserts the node after PreviousNodeID, or first when
// it is zero. It reports whether the inserted node has children CDP did
// not send yet.
func (m *Mirror) ChildNodeInserted(e *proto.DOMChildNodeInserted) (needChildren bool) {
	parent, ok := m.lookup(e.ParentNodeID, "childNodeInserted")
	if !ok || e.Node == nil {
		return false
	}
	if old, ok := m.nodes[e.Node.NodeID]; ok {
		old.Remove()
		m.forget(old)
	}
	node := m.build(e.Node)
	if node == nil {
		return false
	}
	ref := parent.FirstChild()
	if e.PreviousNodeID != 0 {
		if prev, ok := m.nodes[e.PreviousNodeID]; ok && prev.ParentNode() == parent {
			ref = prev.NextSibling()
		}
	}
	parent.InsertBefore(node, ref)
	return e.Node.ChildNodeCount != nil && *e.Node.ChildNodeCount > 0 && len(e.Node.Children) == 0
}

func (m *Mirror) ChildNodeRemoved(e *proto.DOMChildNodeRemoved) {
	n, ok := m.lookup(e.NodeID, "childNodeRemoved")
	if !ok {
		return
	}
	n.Remove()
	m.forget(n)
}

// SetChildNodes replaces the children of ParentID.
func (m *Mirror) SetChildNodes(e *proto.DOMSetChildNodes) {
	parent, ok := m.lookup(e.ParentID, "setChildNodes")
	if !ok {
		return
	}
	for c := parent.FirstChild(); c != nil; c = parent.FirstChild() {
		c.Remove()
		m.forget(c)
	}
	for _, c := range e.Nodes {
		if child := m.build(c); child != nil {
			parent.AppendChild(child)
		}
	}
}

func (m *Mirror) AttributeModified(e *proto.DOMAttributeModified) {
	if n, ok := m.lookup(e.NodeID, "attributeModified"); ok {
		n.SetAttribute(e.Name, e.Value)
	}
}

func (m *Mirror) AttributeRemoved(e *proto.DOMAttributeRemoved) {
	if n, ok := m.lookup(e.NodeID, "attributeRemoved"); ok {
		n.RemoveAttribute(e.Name)
	}
}

func (m *Mirror) CharacterDataModified(e *proto.DOMCharacterDataModified) {
	if n, ok := m.lookup(e.NodeID, "characterDataModified"); ok {
		n.SetData(e.CharacterData)
	}
}

func (m *Mirror) ShadowRootPushed(e *proto.DOMShadowRootPushed) {
	host, ok := m.lookup(e.HostID, "shadowRootPushed")
	if !ok || e.Root == nil || host.ShadowRoot() != nil {
		return
	}
	m.attachShadow(host, e.Root)
}

func (m *Mirror) ShadowRootPopped(e *proto.DOMShadowRootPopped) {
	host, ok := m.lookup(e.HostID, "shadowRootPopped")
	if !ok || host.ShadowRoot() == nil {
		return
	}
	m.forget(host.ShadowRoot())
	host.DetachShadow()
}

// DocumentUpdated records that the mirror went stale.
func (m *Mirror) DocumentUpdated() {
	select {
	case m.updated <- struct{}{}:
	default:
	}
}
