// CLAUDE:SUMMARY Privacy levels, selector rules and ignore policy resolving how each node is redacted.
// Package privacy resolves the redaction level of every observed node.
//
// A node's level is its own rule (tag defaults, the privacy attribute or
// class, configured selector rules, the ignore policy) reduced against the
// level of its logical parent: hidden and ignore are sticky, anything else
// can be overridden by a descendant's explicit rule.
package privacy

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
)

// Level is a privacy level. The empty Level means "no rule".
type Level string

const (
	Allow         Level = "allow"
	Mask          Level = "mask"
	MaskUserInput Level = "mask-user-input"
	Hidden        Level = "hidden"
	Ignore        Level = "ignore"
)

// Attribute and class carrying explicit levels in page markup.
const (
	AttrName    = "data-dd-privacy"
	ClassPrefix = "dd-privacy-"
)

// ParseLevel validates a configured level name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case Allow, Mask, MaskUserInput, Hidden, Ignore:
		return l, nil
	}
	return "", fmt.Errorf("privacy: unknown level %q", s)
}

// Sticky reports whether descendants cannot override l.
func (l Level) Sticky() bool { return l == Hidden || l == Ignore }

// Reduce combines a node's own level with its parent's.
func Reduce(self, parent Level) Level {
	if parent.Sticky() {
		return parent
	}
	switch self {
	case Allow, Mask, MaskUserInput, Hidden, Ignore:
		return self
	}
	return parent
}

var formTags = map[string]bool{
	"input": true, "output": true, "textarea": true, "select": true,
	"option": true, "datalist": true, "optgroup": true,
}

// IsFormElement reports whether n is a form control or option container.
func IsFormElement(n *dom.Node) bool {
	return n != nil && n.Type() == dom.ElementNode && formTags[n.TagName()]
}

// ShouldMask reports whether content of n is masked at level.
func ShouldMask(n *dom.Node, level Level) bool {
	switch level {
	case Mask, Hidden, Ignore:
		return true
	case MaskUserInput:
		if n.Type() == dom.TextNode {
			return IsFormElement(n.ParentNode())
		}
		return IsFormElement(n)
	}
	return false
}
