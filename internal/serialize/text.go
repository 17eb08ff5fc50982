package serialize

import (
	"strings"
	"unicode"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/privacy"
)

// CensorText replaces every non-whitespace character with 'x'.
func CensorText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		return 'x'
	}, s)
}

// TextContent returns the serialized text of a text node whose parent
// resolved to parentLevel. ok is false when the node is dropped.
func TextContent(n *dom.Node, ignoreWhiteSpace bool, parentLevel privacy.Level) (string, bool) {
	var parentTag string
	if p := n.ParentElement(); p != nil {
		parentTag = p.TagName()
	}
	text := n.Data()
	blank := strings.TrimSpace(text) == ""
	if ignoreWhiteSpace && blank {
		return "", false
	}
	switch {
	case parentTag == "script":
		text = CensorMark
	case parentLevel == privacy.Hidden:
		text = CensorMark
	case privacy.ShouldMask(n, parentLevel):
		switch parentTag {
		case "datalist", "select", "optgroup":
			if blank {
				return "", false
			}
		case "option":
			text = CensorMark
		default:
			text = CensorText(text)
		}
	}
	return text, true
}
