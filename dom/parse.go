package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse builds a Document from an HTML stream. Declarative shadow roots
// (<template shadowrootmode>) are attached to their parent element.
func Parse(r io.Reader, href string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := NewDocument(href)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		d.convert(d.root, c)
	}
	return d, nil
}

// ParseString is Parse on a string.
func ParseString(src, href string) (*Document, error) {
	return Parse(strings.NewReader(src), href)
}

func (d *Document) convert(parent *Node, h *html.Node) {
	var n *Node
	switch h.Type {
	case html.DoctypeNode:
		var public, system string
		for _, a := range h.Attr {
			switch a.Key {
			case "public":
				public = a.Val
			case "system":
				system = a.Val
			}
		}
		n = d.CreateDocumentType(h.Data, public, system)
	case html.TextNode:
		n = d.CreateTextNode(h.Data)
	case html.CommentNode:
		n = d.CreateComment(h.Data)
	case html.ElementNode:
		if h.DataAtom == atom.Template && parent.typ == ElementNode && parent.shadow == nil {
			if mode := shadowRootMode(h); mode != "" {
				sr := parent.AttachShadow(mode)
				for c := h.FirstChild; c != nil; c = c.NextSibling {
					d.convert(sr, c)
				}
				return
			}
		}
		n = d.CreateElementNS(h.Data, h.Namespace == "svg")
		for _, a := range h.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			n.attrs = append(n.attrs, Attribute{Name: strings.ToLower(key), Value: a.Val})
		}
		if n.IsMedia() && n.HasAttribute("autoplay") {
			n.paused = false
		}
	default:
		return
	}
	n.parent = parent
	parent.children = append(parent.children, n)
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		d.convert(n, c)
	}
}

func shadowRootMode(h *html.Node) string {
	for _, a := range h.Attr {
		if a.Key == "shadowrootmode" || a.Key == "shadowroot" {
			if m := strings.ToLower(a.Val); m == "open" || m == "closed" {
				return m
			}
		}
	}
	return ""
}
