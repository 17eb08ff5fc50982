package record

import "encoding/json"

// NodeType discriminates serialized nodes. The numbering is the replay
// format's own, not the DOM nodeType.
type NodeType int

const (
	NodeDocument         NodeType = 0
	NodeDocumentType     NodeType = 1
	NodeElement          NodeType = 2
	NodeText             NodeType = 3
	NodeCDATA            NodeType = 4
	NodeDocumentFragment NodeType = 11
)

// Node is a serialized node: one of *Document, *DocumentType, *Element,
// *Text, *CDATA or *DocumentFragment. The set is closed.
type Node interface {
	NodeType() NodeType
	NodeID() int
	node()
}

// Attributes maps attribute names to string, number or boolean values.
type Attributes map[string]any

type Document struct {
	ChildNodes []Node `json:"childNodes"`
	ID         int    `json:"id"`
}

type DocumentType struct {
	Name     string `json:"name"`
	PublicID string `json:"publicId"`
	SystemID string `json:"systemId"`
	ID       int    `json:"id"`
}

type Element struct {
	TagName    string     `json:"tagName"`
	Attributes Attributes `json:"attributes"`
	ChildNodes []Node     `json:"childNodes"`
	IsSVG      bool       `json:"isSVG,omitempty"`
	ID         int        `json:"id"`
}

type Text struct {
	TextContent string `json:"textContent"`
	ID          int    `json:"id"`
}

type CDATA struct {
	TextContent string `json:"textContent"`
	ID          int    `json:"id"`
}

// DocumentFragment is only emitted for shadow roots.
type DocumentFragment struct {
	ChildNodes   []Node `json:"childNodes"`
	IsShadowRoot bool   `json:"isShadowRoot"`
	ID           int    `json:"id"`
}

func (*Document) NodeType() NodeType         { return NodeDocument }
func (*DocumentType) NodeType() NodeType     { return NodeDocumentType }
func (*Element) NodeType() NodeType          { return NodeElement }
func (*Text) NodeType() NodeType             { return NodeText }
func (*CDATA) NodeType() NodeType            { return NodeCDATA }
func (*DocumentFragment) NodeType() NodeType { return NodeDocumentFragment }

func (n *Document) NodeID() int         { return n.ID }
func (n *DocumentType) NodeID() int     { return n.ID }
func (n *Element) NodeID() int          { return n.ID }
func (n *Text) NodeID() int             { return n.ID }
func (n *CDATA) NodeID() int            { return n.ID }
func (n *DocumentFragment) NodeID() int { return n.ID }

func (*Document) node()         {}
func (*DocumentType) node()     {}
func (*Element) node()          {}
func (*Text) node()             {}
func (*CDATA) node()            {}
func (*DocumentFragment) node() {}

type (
	documentFields         Document
	documentTypeFields     DocumentType
	elementFields          Element
	textFields             Text
	cdataFields            CDATA
	documentFragmentFields DocumentFragment
)

// Each MarshalJSON prefixes the node's own fields with its type
// discriminator; the *Fields aliases drop the method set to avoid recursion.

func (n *Document) MarshalJSON() ([]byte, error) {
	f := documentFields(*n)
	if f.ChildNodes == nil {
		f.ChildNodes = []Node{}
	}
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		documentFields
	}{NodeDocument, f})
}

func (n *DocumentType) MarshalJSON() ([]byte, error) {
	f := documentTypeFields(*n)
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		documentTypeFields
	}{NodeDocumentType, f})
}

func (n *Element) MarshalJSON() ([]byte, error) {
	f := elementFields(*n)
	if f.ChildNodes == nil {
		f.ChildNodes = []Node{}
	}
	if f.Attributes == nil {
		f.Attributes = Attributes{}
	}
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		elementFields
	}{NodeElement, f})
}

func (n *Text) MarshalJSON() ([]byte, error) {
	f := textFields(*n)
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		textFields
	}{NodeText, f})
}

func (n *CDATA) MarshalJSON() ([]byte, error) {
	f := cdataFields(*n)
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		cdataFields
	}{NodeCDATA, f})
}

func (n *DocumentFragment) MarshalJSON() ([]byte, error) {
	f := documentFragmentFields(*n)
	if f.ChildNodes == nil {
		f.ChildNodes = []Node{}
	}
	return json.Marshal(struct {
		Type NodeType `json:"type"`
		documentFragmentFields
	}{NodeDocumentFragment, f})
}

// Children returns the child list of container nodes, nil otherwise.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Document:
		return v.ChildNodes
	case *Element:
		return v.ChildNodes
	case *DocumentFragment:
		return v.ChildNodes
	}
	return nil
}

// Walk visits n and its descendants depth-first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
