package inspect

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/hazyhaar/domreplay/record"
)

// Node is a replayed node.
type Node struct {
	ID           int
	Type         record.NodeType
	Name         string // tag name or doctype name
	Attributes   map[string]string
	Text         string
	IsShadowRoot bool
	Children     []*Node

	parent *Node
}

// Tree is the replica a player would hold after applying records in order.
type Tree struct {
	Root  *Node
	nodes map[int]*Node
}

// Rebuild applies records, each one JSON object, to an empty tree.
func Rebuild(records [][]byte) (*Tree, error) {
	t := &Tree{nodes: map[int]*Node{}}
	for i, r := range records {
		if err := t.Apply(r); err != nil {
			return nil, fmt.Errorf("inspect: record %d: %w", i, err)
		}
	}
	return t, nil
}

// FromDocument loads a serialized document as a tree.
func FromDocument(doc *record.Document) (*Tree, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("inspect: marshal document: %w", err)
	}
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("inspect: parse document: %w", err)
	}
	t := &Tree{nodes: map[int]*Node{}}
	if t.Root, err = t.load(v, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// Node returns the node holding id.
func (t *Tree) Node(id int) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of nodes attached to the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Apply applies one record. Records other than full snapshots and
// mutations leave the tree unchanged.
func (t *Tree) Apply(raw []byte) error {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return err
	}
	switch record.Type(v.GetInt("type")) {
	case record.TypeFullSnapshot:
		node := v.Get("data", "node")
		if node == nil {
			return fmt.Errorf("full snapshot without node")
		}
		t.nodes = map[int]*Node{}
		t.Root, err = t.load(node, nil)
		return err
	case record.TypeIncrementalSnapshot:
		if record.Source(v.GetInt("data", "source")) == record.SourceMutation {
			if t.Root == nil {
				return fmt.Errorf("mutation before any full snapshot")
			}
			return t.mutate(v.Get("data"))
		}
	}
	return nil
}

func (t *Tree) load(v *fastjson.Value, parent *Node) (*Node, error) {
	n := &Node{
		ID:     v.GetInt("id"),
		Type:   record.NodeType(v.GetInt("type")),
		parent: parent,
	}
	if n.ID <= 0 {
		return nil, fmt.Errorf("node without id")
	}
	if _, dup := t.nodes[n.ID]; dup {
		return nil, fmt.Errorf("node %d serialized twice", n.ID)
	}
	switch n.Type {
	case record.NodeDocumentType:
		n.Name = string(v.GetStringBytes("name"))
	case record.NodeElement:
		n.Name = string(v.GetStringBytes("tagName"))
		n.Attributes = map[string]string{}
		if obj := v.GetObject("attributes"); obj != nil {
			obj.Visit(func(k []byte, av *fastjson.Value) {
				n.Attributes[string(k)] = attrString(av)
			})
		}
	case record.NodeText, record.NodeCDATA:
		n.Text = string(v.GetStringBytes("textContent"))
	case record.NodeDocumentFragment:
		n.IsShadowRoot = v.GetBool("isShadowRoot")
	}
	t.nodes[n.ID] = n
	for _, c := range v.GetArray("childNodes") {
		child, err := t.load(c, n)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func attrString(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}

func (t *Tree) mutate(data *fastjson.Value) error {
	for _, r := range data.GetArray("removes") {
		id, parentID := r.GetInt("id"), r.GetInt("parentId")
		n, ok := t.nodes[id]
		if !ok {
			return fmt.Errorf("remove of unknown node %d", id)
		}
		if n.parent == nil || n.parent.ID != parentID {
			return fmt.Errorf("remove of node %d from %d, which is not its parent", id, parentID)
		}
		n.parent.Children = slices.DeleteFunc(n.parent.Children, func(c *Node) bool { return c == n })
		t.forget(n)
	}

	for _, a := range data.GetArray("adds") {
		parentID := a.GetInt("parentId")
		parent, ok := t.nodes[parentID]
		if !ok {
			return fmt.Errorf("add under unknown parent %d", parentID)
		}
		n, err := t.load(a.Get("node"), parent)
		if err != nil {
			return err
		}
		next := a.Get("nextId")
		if next == nil || next.Type() == fastjson.TypeNull {
			parent.Children = slices.Insert(parent.Children, appendIndex(parent, n), n)
			continue
		}
		nextID := next.GetInt()
		i := slices.IndexFunc(parent.Children, func(c *Node) bool { return c.ID == nextID })
		if i < 0 {
			return fmt.Errorf("add of %d before %d, which is not a child of %d", n.ID, nextID, parentID)
		}
		parent.Children = slices.Insert(parent.Children, i, n)
	}

	for _, tm := range data.GetArray("texts") {
		id := tm.GetInt("id")
		n, ok := t.nodes[id]
		if !ok {
			return fmt.Errorf("text of unknown node %d", id)
		}
		n.Text = string(tm.GetStringBytes("value"))
	}

	for _, am := range data.GetArray("attributes") {
		id := am.GetInt("id")
		n, ok := t.nodes[id]
		if !ok {
			return fmt.Errorf("attributes of unknown node %d", id)
		}
		attrs := am.GetObject("attributes")
		if attrs == nil {
			continue
		}
		attrs.Visit(func(k []byte, v *fastjson.Value) {
			if v.Type() == fastjson.TypeNull {
				delete(n.Attributes, string(k))
				return
			}
			n.Attributes[string(k)] = attrString(v)
		})
	}
	return nil
}

// appendIndex keeps a host's shadow root after its light children.
func appendIndex(parent *Node, n *Node) int {
	i := len(parent.Children)
	if n.IsShadowRoot {
		return i
	}
	for i > 0 && parent.Children[i-1].IsShadowRoot {
		i--
	}
	return i
}

func (t *Tree) forget(n *Node) {
	delete(t.nodes, n.ID)
	n.parent = nil
	for _, c := range n.Children {
		t.forget(c)
	}
}

// Render prints the tree in a canonical form: one node per line, indented
// by depth, attributes sorted.
func (t *Tree) Render() string {
	var b strings.Builder
	if t.Root != nil {
		render(&b, t.Root, 0)
	}
	return b.String()
}

func render(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("#")
	b.WriteString(strconv.Itoa(n.ID))
	b.WriteString(" ")
	switch n.Type {
	case record.NodeDocument:
		b.WriteString("document")
	case record.NodeDocumentType:
		b.WriteString("<!doctype " + n.Name + ">")
	case record.NodeElement:
		b.WriteString("<" + n.Name)
		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			b.WriteString(" " + k + "=" + strconv.Quote(n.Attributes[k]))
		}
		b.WriteString(">")
	case record.NodeText:
		b.WriteString(strconv.Quote(n.Text))
	case record.NodeCDATA:
		b.WriteString("cdata " + strconv.Quote(n.Text))
	case record.NodeDocumentFragment:
		b.WriteString("#shadow-root")
	}
	b.WriteString("\n")
	for _, c := range n.Children {
		render(b, c, depth+1)
	}
}
