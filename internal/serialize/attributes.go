package serialize

import (
	"slices"
	"strconv"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/privacy"
)

// CensorMark replaces masked strings.
const CensorMark = "***"

// CensoredImage replaces masked image sources of unknown size.
const CensoredImage = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// MaxAttributeValueLength bounds data URLs kept in attributes.
const MaxAttributeValueLength = 24000

// StableAttributes survive masking: test hooks and action names carry no
// user data.
var StableAttributes = []string{
	"data-dd-action-name",
	"data-testid",
	"data-test",
	"data-qa",
	"data-cy",
	"data-test-id",
	"data-qa-id",
	"data-testing",
	"data-component",
	"data-element",
	"data-source-file",
}

// CensoredImageForSize returns a silver SVG placeholder of the given size.
func CensoredImageForSize(width, height float64) string {
	return "data:image/svg+xml;charset=utf-8,%3Csvg%20width%3D%27" + formatNumber(width) +
		"%27%20height%3D%27" + formatNumber(height) +
		"%27%20style%3D%27background-color%3Asilver%27%20xmlns%3D%27http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%27%2F%3E"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Attribute returns the serialized value of one attribute at level. ok is
// false for hidden elements and absent attributes.
func (c *Context) Attribute(n *dom.Node, level privacy.Level, name string) (string, bool) {
	if level == privacy.Hidden {
		return "", false
	}
	value, present := n.Attr(name)
	if level == privacy.Mask && name != privacy.AttrName && !slices.Contains(StableAttributes, name) && name != c.ActionNameAttribute {
		tag := n.TagName()
		switch name {
		case "title", "alt", "placeholder":
			return CensorMark, true
		}
		if tag == "img" && (name == "src" || name == "srcset") {
			if w, h := n.Rect(); w > 0 || h > 0 {
				return CensoredImageForSize(w, h), true
			}
			return CensoredImage, true
		}
		if tag == "source" && (name == "src" || name == "srcset") {
			return CensoredImage, true
		}
		if tag == "a" && name == "href" {
			return CensorMark, true
		}
		if value != "" && strings.HasPrefix(name, "data-") {
			return CensorMark, true
		}
		if tag == "iframe" && name == "srcdoc" {
			return CensorMark, true
		}
	}
	if !present {
		return "", false
	}
	if isLongDataURL(value) {
		return sanitizeDataURL(value), true
	}
	return value, true
}

func isLongDataURL(v string) bool {
	return len(v) > MaxAttributeValueLength && strings.HasPrefix(v, "data:")
}

func sanitizeDataURL(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		return v[:i+1] + "truncated"
	}
	return "data:truncated"
}

// InputValue returns the value a form control exposes at level. ok is
// false when the value must not be recorded at all.
func InputValue(n *dom.Node, level privacy.Level) (string, bool) {
	tag := n.TagName()
	value := n.Value()
	if privacy.ShouldMask(n, level) {
		if tag == "input" {
			switch n.InputType() {
			case "button", "submit", "reset":
				return value, true
			}
		}
		if value == "" || tag == "option" {
			return "", false
		}
		return CensorMark, true
	}
	if tag == "option" || tag == "select" {
		return value, true
	}
	if tag != "input" && tag != "textarea" {
		return "", false
	}
	return value, true
}

func (c *Context) attributes(n *dom.Node, level privacy.Level) map[string]any {
	attrs := map[string]any{}
	if level == privacy.Hidden {
		return attrs
	}
	tag := n.TagName()
	for _, a := range n.Attributes() {
		if v, ok := c.Attribute(n, level, a.Name); ok {
			attrs[a.Name] = v
		}
	}
	switch tag {
	case "textarea", "select", "option", "input":
		if n.Value() != "" {
			if v, ok := InputValue(n, level); ok {
				attrs["value"] = v
			}
		}
	}
	if tag == "option" && level == privacy.Allow && n.Selected() {
		attrs["selected"] = true
	}
	if n.IsStylesheetLink() || tag == "style" {
		if sheet := n.Sheet(); sheet != nil {
			if css := c.sheetText(sheet); css != "" {
				attrs["_cssText"] = css
			}
		}
	}
	if tag == "input" {
		if t := n.InputType(); t == "radio" || t == "checkbox" {
			if level == privacy.Allow {
				attrs["checked"] = n.Checked()
			} else if privacy.ShouldMask(n, level) {
				delete(attrs, "checked")
			}
		}
	}
	if n.IsMedia() {
		if n.Paused() {
			attrs["rr_mediaState"] = "paused"
		} else {
			attrs["rr_mediaState"] = "played"
		}
	}
	var top, left float64
	switch c.Kind {
	case InitialFullSnapshot:
		l, t := n.Scroll()
		top, left = roundHalfUp(t), roundHalfUp(l)
		if top != 0 || left != 0 {
			c.Scroll.Set(n, ScrollPosition{Top: top, Left: left})
		}
	case SubsequentFullSnapshot:
		if p, ok := c.Scroll.Get(n); ok {
			top, left = p.Top, p.Left
		}
	}
	if left != 0 {
		attrs["rr_scrollLeft"] = left
	}
	if top != 0 {
		attrs["rr_scrollTop"] = top
	}
	return attrs
}
