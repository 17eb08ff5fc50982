package dom

import (
	"errors"
	"strings"
)

// ErrIndexSize is returned by rule insertion/deletion with an out-of-range
// index, like the DOM IndexSizeError.
var ErrIndexSize = errors.New("dom: index out of range")

// StyleSheet is the CSSOM sheet of a <style> or stylesheet <link> element.
type StyleSheet struct {
	owner *Node
	href  string
	rules []*CSSRule
}

// CSSRule is one rule of a sheet. Grouping rules (@media, @supports, ...)
// hold nested rules; other rules carry their full text.
type CSSRule struct {
	text    string
	prelude string
	group   bool
	rules   []*CSSRule

	parent *CSSRule
	sheet  *StyleSheet
}

// RuleChangeOp is the kind of a stylesheet rule change.
type RuleChangeOp int

const (
	RuleInserted RuleChangeOp = iota
	RuleDeleted
)

// RuleChange describes an insertRule/deleteRule call. Parent is nil for
// top-level changes and the grouping rule otherwise.
type RuleChange struct {
	Op     RuleChangeOp
	Sheet  *StyleSheet
	Parent *CSSRule
	Rule   string
	Index  int
}

type ruleHook struct {
	fn func(RuleChange)
}

// OnStyleSheetChange registers fn to run after each successful rule insertion
// or deletion on any sheet of the document.
func (d *Document) OnStyleSheetChange(fn func(RuleChange)) (remove func()) {
	h := &ruleHook{fn: fn}
	d.ruleHooks = append(d.ruleHooks, h)
	return func() {
		kept := d.ruleHooks[:0]
		for _, other := range d.ruleHooks {
			if other != h {
				kept = append(kept, other)
			}
		}
		d.ruleHooks = kept
	}
}

func (d *Document) notifyRuleChange(c RuleChange) {
	for _, h := range append([]*ruleHook(nil), d.ruleHooks...) {
		h.fn(c)
	}
}

// Sheet returns the element's stylesheet: parsed lazily from the text of a
// <style>, or the sheet installed with SetSheet on a <link>.
func (n *Node) Sheet() *StyleSheet {
	if n.sheet != nil {
		return n.sheet
	}
	if n.tag == "style" {
		n.sheet = ParseStyleSheet(n.TextContent(), "")
		n.sheet.owner = n
		return n.sheet
	}
	return nil
}

// SetSheet installs a loaded stylesheet on a <link> (or replaces the sheet of
// a <style>). href is the sheet URL used to resolve relative urls.
func (n *Node) SetSheet(cssText, href string) *StyleSheet {
	s := ParseStyleSheet(cssText, href)
	s.owner = n
	n.sheet = s
	return s
}

// IsStylesheetLink reports whether n is a <link rel="stylesheet">.
func (n *Node) IsStylesheetLink() bool {
	if n.tag != "link" {
		return false
	}
	for _, r := range strings.Fields(strings.ToLower(n.GetAttribute("rel"))) {
		if r == "stylesheet" {
			return true
		}
	}
	return false
}

// ParseStyleSheet parses cssText into a detached sheet.
func ParseStyleSheet(cssText, href string) *StyleSheet {
	s := &StyleSheet{href: href}
	s.rules = parseRules(cssText, nil, s)
	return s
}

// OwnerNode returns the element owning the sheet.
func (s *StyleSheet) OwnerNode() *Node { return s.owner }

// Href returns the sheet URL, "" for inline sheets.
func (s *StyleSheet) Href() string { return s.href }

// Rules returns the top-level rules.
func (s *StyleSheet) Rules() []*CSSRule { return append([]*CSSRule(nil), s.rules...) }

// CSSText concatenates the text of every rule.
func (s *StyleSheet) CSSText() string { return joinRules(s.rules) }

// InsertRule parses rule and inserts it at index.
func (s *StyleSheet) InsertRule(rule string, index int) (int, error) {
	if index < 0 || index > len(s.rules) {
		return 0, ErrIndexSize
	}
	parsed := parseRules(rule, nil, s)
	if len(parsed) != 1 {
		return 0, errors.New("dom: insertRule: expected exactly one rule")
	}
	s.rules = insertAt(s.rules, index, parsed[0])
	s.notify(RuleChange{Op: RuleInserted, Sheet: s, Rule: rule, Index: index})
	return index, nil
}

// DeleteRule removes the rule at index.
func (s *StyleSheet) DeleteRule(index int) error {
	if index < 0 || index >= len(s.rules) {
		return ErrIndexSize
	}
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
	s.notify(RuleChange{Op: RuleDeleted, Sheet: s, Index: index})
	return nil
}

func (s *StyleSheet) notify(c RuleChange) {
	if s.owner != nil && s.owner.doc != nil {
		s.owner.doc.notifyRuleChange(c)
	}
}

// CSSText returns the serialized rule.
func (r *CSSRule) CSSText() string {
	if !r.group {
		return r.text
	}
	return r.prelude + " { " + joinRules(r.rules) + " }"
}

// IsGrouping reports whether r holds nested rules.
func (r *CSSRule) IsGrouping() bool { return r.group }

// Rules returns the nested rules of a grouping rule.
func (r *CSSRule) Rules() []*CSSRule { return append([]*CSSRule(nil), r.rules...) }

// ParentRule returns the enclosing grouping rule, or nil.
func (r *CSSRule) ParentRule() *CSSRule { return r.parent }

// ParentStyleSheet returns the sheet the rule belongs to.
func (r *CSSRule) ParentStyleSheet() *StyleSheet { return r.sheet }

// Path returns the index of r in each enclosing rule list, outermost first.
func (r *CSSRule) Path() []int {
	var rev []int
	for cur := r; cur != nil; cur = cur.parent {
		var list []*CSSRule
		if cur.parent != nil {
			list = cur.parent.rules
		} else if cur.sheet != nil {
			list = cur.sheet.rules
		}
		idx := -1
		for i, c := range list {
			if c == cur {
				idx = i
				break
			}
		}
		rev = append(rev, idx)
	}
	path := make([]int, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}

// InsertRule inserts a nested rule into a grouping rule.
func (r *CSSRule) InsertRule(rule string, index int) (int, error) {
	if !r.group {
		return 0, errors.New("dom: insertRule: not a grouping rule")
	}
	if index < 0 || index > len(r.rules) {
		return 0, ErrIndexSize
	}
	parsed := parseRules(rule, r, r.sheet)
	if len(parsed) != 1 {
		return 0, errors.New("dom: insertRule: expected exactly one rule")
	}
	r.rules = insertAt(r.rules, index, parsed[0])
	if r.sheet != nil {
		r.sheet.notify(RuleChange{Op: RuleInserted, Sheet: r.sheet, Parent: r, Rule: rule, Index: index})
	}
	return index, nil
}

// DeleteRule removes a nested rule from a grouping rule.
func (r *CSSRule) DeleteRule(index int) error {
	if !r.group {
		return errors.New("dom: deleteRule: not a grouping rule")
	}
	if index < 0 || index >= len(r.rules) {
		return ErrIndexSize
	}
	r.rules = append(r.rules[:index], r.rules[index+1:]...)
	if r.sheet != nil {
		r.sheet.notify(RuleChange{Op: RuleDeleted, Sheet: r.sheet, Parent: r, Index: index})
	}
	return nil
}

func insertAt(rules []*CSSRule, index int, r *CSSRule) []*CSSRule {
	rules = append(rules, nil)
	copy(rules[index+1:], rules[index:])
	rules[index] = r
	return rules
}

func joinRules(rules []*CSSRule) string {
	var b strings.Builder
	for _, r := range rules {
		b.WriteString(r.CSSText())
	}
	return b.String()
}

var groupingAtRules = []string{"@media", "@supports", "@container", "@layer", "@document"}

// parseRules splits css into top-level rules. It understands comments,
// quoted strings and nested blocks; declarations are kept verbatim.
func parseRules(css string, parent *CSSRule, sheet *StyleSheet) []*CSSRule {
	css = stripComments(css)
	var out []*CSSRule
	i := 0
	for i < len(css) {
		start := i
		end, open := scanTo(css, i, "{;")
		if end >= len(css) {
			if t := strings.TrimSpace(css[start:]); t != "" {
				out = append(out, &CSSRule{text: t, parent: parent, sheet: sheet})
			}
			break
		}
		if open == ';' {
			if t := strings.TrimSpace(css[start : end+1]); t != ";" {
				out = append(out, &CSSRule{text: t, parent: parent, sheet: sheet})
			}
			i = end + 1
			continue
		}
		prelude := strings.Join(strings.Fields(css[start:end]), " ")
		closing := matchBrace(css, end)
		body := css[end+1 : closing]
		r := &CSSRule{prelude: prelude, parent: parent, sheet: sheet}
		if isGrouping(prelude) {
			r.group = true
			r.rules = parseRules(body, r, sheet)
		} else {
			decl := strings.TrimSpace(body)
			if decl == "" {
				r.text = prelude + " { }"
			} else {
				r.text = prelude + " { " + decl + " }"
			}
		}
		if prelude != "" {
			out = append(out, r)
		}
		i = closing + 1
	}
	return out
}

func isGrouping(prelude string) bool {
	lower := strings.ToLower(prelude)
	for _, at := range groupingAtRules {
		if strings.HasPrefix(lower, at) {
			return true
		}
	}
	return false
}

// scanTo returns the index of the first byte of stop found outside quotes.
func scanTo(s string, i int, stop string) (int, byte) {
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.IndexByte(stop, c) >= 0:
			return i, c
		}
	}
	return len(s), 0
}

// matchBrace returns the index of the brace closing the one at open, or
// len(s) when unbalanced.
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}

func stripComments(s string) string {
	if !strings.Contains(s, "/*") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, "/*")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		j := strings.Index(s[i+2:], "*/")
		if j < 0 {
			return b.String()
		}
		s = s[i+2+j+2:]
	}
}
