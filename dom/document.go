package dom

import (
	"strings"
	"sync"
	"time"
)

// Viewport is the layout viewport size.
type Viewport struct {
	Width  float64
	Height float64
}

// VisualViewport mirrors window.visualViewport.
type VisualViewport struct {
	Scale      float64
	OffsetLeft float64
	OffsetTop  float64
	PageLeft   float64
	PageTop    float64
	Width      float64
	Height     float64
}

// Document owns a node tree and the observation machinery attached to it.
//
// Documents follow the browser's single-threaded model: every mutation,
// event dispatch and observer callback happens inside a turn. Hosts and
// timers enter a turn with Run; code already running inside a turn (event
// listeners, observer callbacks) must not call Run again.
type Document struct {
	turn sync.Mutex
	root *Node

	href     string
	viewport Viewport
	visual   *VisualViewport
	scrollX  float64
	scrollY  float64
	focused  bool

	observers []*MutationObserver
	listeners []*listener
	setHooks  []*propertyHook
	ruleHooks []*ruleHook
	nextHook  int

	activityMu   sync.Mutex
	lastActivity time.Time
}

// NewDocument creates an empty document for href.
func NewDocument(href string) *Document {
	d := &Document{
		href:     href,
		viewport: Viewport{Width: 1280, Height: 720},
		focused:  true,
	}
	d.root = d.newNode(DocumentNode)
	return d
}

// Run executes fn inside a document turn, then delivers pending mutation
// observer notifications before releasing the turn.
func (d *Document) Run(fn func()) {
	d.turn.Lock()
	defer d.turn.Unlock()
	fn()
	d.deliverMutations()
	d.activityMu.Lock()
	d.lastActivity = time.Now()
	d.activityMu.Unlock()
}

// Node returns the document node.
func (d *Document) Node() *Node { return d.root }

// DocumentElement returns the root element (<html>), or nil.
func (d *Document) DocumentElement() *Node {
	for _, c := range d.root.children {
		if c.typ == ElementNode {
			return c
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Node {
	if html := d.DocumentElement(); html != nil {
		for _, c := range html.children {
			if c.tag == "body" {
				return c
			}
		}
	}
	return nil
}

// Head returns the <head> element, or nil.
func (d *Document) Head() *Node {
	if html := d.DocumentElement(); html != nil {
		for _, c := range html.children {
			if c.tag == "head" {
				return c
			}
		}
	}
	return nil
}

// Href returns the document URL.
func (d *Document) Href() string { return d.href }

// SetHref records a same-document navigation.
func (d *Document) SetHref(href string) { d.href = href }

// Viewport returns the layout viewport size.
func (d *Document) Viewport() Viewport { return d.viewport }

// SetViewport records a layout viewport resize.
func (d *Document) SetViewport(v Viewport) { d.viewport = v }

// VisualViewport returns the visual viewport, or nil when unsupported.
func (d *Document) VisualViewport() *VisualViewport {
	if d.visual == nil {
		return nil
	}
	vv := *d.visual
	return &vv
}

// SetVisualViewport records the visual viewport state; nil disables it.
func (d *Document) SetVisualViewport(vv *VisualViewport) {
	if vv == nil {
		d.visual = nil
		return
	}
	c := *vv
	d.visual = &c
}

// WindowScroll returns window.scrollX / window.scrollY.
func (d *Document) WindowScroll() (x, y float64) { return d.scrollX, d.scrollY }

// SetWindowScroll records the window scroll position.
func (d *Document) SetWindowScroll(x, y float64) { d.scrollX, d.scrollY = x, y }

// HasFocus reports document.hasFocus().
func (d *Document) HasFocus() bool { return d.focused }

// SetFocus records window focus.
func (d *Document) SetFocus(focused bool) { d.focused = focused }

func (d *Document) newNode(t NodeType) *Node {
	return &Node{typ: t, doc: d, selectedIndex: -1}
}

// CreateElement creates a detached HTML element.
func (d *Document) CreateElement(tag string) *Node {
	n := d.newNode(ElementNode)
	n.tag = strings.ToLower(tag)
	if n.IsMedia() {
		n.paused = true
	}
	return n
}

// CreateElementNS creates a detached element; svg selects the SVG namespace.
func (d *Document) CreateElementNS(tag string, svg bool) *Node {
	n := d.CreateElement(tag)
	n.svg = svg
	return n
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(data string) *Node {
	n := d.newNode(TextNode)
	n.data = data
	return n
}

// CreateComment creates a detached comment.
func (d *Document) CreateComment(data string) *Node {
	n := d.newNode(CommentNode)
	n.data = data
	return n
}

// CreateCDATASection creates a detached CDATA section.
func (d *Document) CreateCDATASection(data string) *Node {
	n := d.newNode(CDATASectionNode)
	n.data = data
	return n
}

// CreateDocumentType creates a doctype node.
func (d *Document) CreateDocumentType(name, publicID, systemID string) *Node {
	n := d.newNode(DocumentTypeNode)
	n.name, n.publicID, n.systemID = name, publicID, systemID
	return n
}

// CreateDocumentFragment creates a detached fragment.
func (d *Document) CreateDocumentFragment() *Node {
	return d.newNode(DocumentFragmentNode)
}

// Element is a construction helper: it creates an element with attributes
// given as name/value pairs and appends children.
func (d *Document) Element(tag string, attrs []string, children ...*Node) *Node {
	n := d.CreateElement(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		n.attrs = append(n.attrs, Attribute{Name: strings.ToLower(attrs[i]), Value: attrs[i+1]})
	}
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// Text is a construction helper equivalent to CreateTextNode.
func (d *Document) Text(data string) *Node { return d.CreateTextNode(data) }

// QuerySelectorAll returns elements of the document tree (shadow trees
// excluded) matched by fn, in document order.
func (d *Document) QuerySelectorAll(fn func(*Node) bool) []*Node {
	var out []*Node
	d.root.Walk(func(n *Node) bool {
		if n.IsShadowRoot() {
			return false
		}
		if n.typ == ElementNode && fn(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ElementByID returns the first element with the given id attribute.
func (d *Document) ElementByID(id string) *Node {
	var found *Node
	d.root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.typ == ElementNode && n.GetAttribute("id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// LastActivity returns the end time of the latest turn.
func (d *Document) LastActivity() time.Time {
	d.activityMu.Lock()
	defer d.activityMu.Unlock()
	return d.lastActivity
}
