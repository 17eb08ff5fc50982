package fetcher

import (
	"strings"
	"unicode"

	"github.com/hazyhaar/domreplay/dom"
)

// spaMounts are the ids of the empty mount points SPA shells ship.
var spaMounts = map[string]bool{"root": true, "app": true, "__next": true}

// IsSufficient reports whether a parsed page has enough visible text
// relative to its size to be recorded without running scripts. size is the
// length of the source HTML.
func IsSufficient(doc *dom.Document, size int) bool {
	if size < 256 {
		return false
	}
	text, shell := visibleText(doc)
	if shell {
		return false
	}
	// Less than 10% text is likely an SPA shell; 200 visible chars minimum.
	return text >= 200 && float64(text)/float64(size) >= 0.10
}

// visibleText counts non-space characters outside script, style and
// template, and reports SPA shell markers.
func visibleText(doc *dom.Document) (text int, shell bool) {
	doc.Node().Walk(func(n *dom.Node) bool {
		switch n.Type() {
		case dom.ElementNode:
			switch n.TagName() {
			case "script", "style", "template", "head":
				return false
			case "noscript":
				if strings.Contains(strings.ToLower(n.TextContent()), "enable javascript") {
					shell = true
				}
				return false
			}
			if spaMounts[n.GetAttribute("id")] && !n.HasChildNodes() {
				shell = true
			}
		case dom.TextNode:
			for _, r := range n.Data() {
				if !unicode.IsSpace(r) {
					text++
				}
			}
		}
		return true
	})
	return text, shell
}
