package dom

import (
	"strconv"
	"strings"
)

// Property names reported to setter hooks.
const (
	PropValue         = "value"
	PropChecked       = "checked"
	PropSelectedIndex = "selectedIndex"
)

// InputType returns the lower-cased type of an <input>, "text" by default.
func (n *Node) InputType() string {
	if n.tag != "input" {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(n.GetAttribute("type")))
	if t == "" {
		return "text"
	}
	return t
}

// Name returns the name attribute.
func (n *Node) Name() string { return n.GetAttribute("name") }

// Value returns the live value of a form control.
func (n *Node) Value() string {
	switch n.tag {
	case "input":
		if n.value != nil {
			return *n.value
		}
		v := n.GetAttribute("value")
		if v == "" && (n.InputType() == "checkbox" || n.InputType() == "radio") && !n.HasAttribute("value") {
			return "on"
		}
		return v
	case "textarea":
		if n.value != nil {
			return *n.value
		}
		return n.TextContent()
	case "select":
		opts := n.Options()
		i := n.SelectedIndex()
		if i < 0 || i >= len(opts) {
			return ""
		}
		return opts[i].Value()
	case "option":
		if v, ok := n.Attr("value"); ok {
			return v
		}
		return strings.Join(strings.Fields(n.TextContent()), " ")
	}
	if n.value != nil {
		return *n.value
	}
	return ""
}

// SetValue assigns the value property the way page scripts do. Setter
// hooks observe the change; no event is dispatched.
func (n *Node) SetValue(v string) {
	n.setValue(v)
	n.doc.notifyPropertySet(n, PropValue)
}

// EditValue changes the value the way a user edit does: setter hooks are
// not invoked. Hosts dispatch the matching input event themselves.
func (n *Node) EditValue(v string) {
	n.setValue(v)
}

func (n *Node) setValue(v string) {
	if n.tag == "select" {
		for i, o := range n.Options() {
			if o.Value() == v {
				n.selectedIndex = i
				n.selectedDirty = true
				return
			}
		}
		n.selectedIndex = -1
		n.selectedDirty = true
		return
	}
	n.value = &v
}

// Checked returns the checkedness of a checkbox or radio input.
func (n *Node) Checked() bool {
	if n.checked != nil {
		return *n.checked
	}
	return n.HasAttribute("checked")
}

// SetChecked assigns the checked property the way page scripts do.
func (n *Node) SetChecked(checked bool) {
	n.setChecked(checked)
	n.doc.notifyPropertySet(n, PropChecked)
}

// EditChecked toggles checkedness the way a user click does.
func (n *Node) EditChecked(checked bool) {
	n.setChecked(checked)
}

func (n *Node) setChecked(checked bool) {
	n.checked = &checked
	if !checked || n.InputType() != "radio" || n.Name() == "" {
		return
	}
	for _, other := range n.RadioGroup() {
		if other != n {
			f := false
			other.checked = &f
		}
	}
}

// RadioGroup returns every radio input of the same tree sharing n's name,
// n included.
func (n *Node) RadioGroup() []*Node {
	name := n.Name()
	if n.InputType() != "radio" || name == "" {
		return nil
	}
	var group []*Node
	n.Root().Walk(func(c *Node) bool {
		if c.typ == DocumentFragmentNode && c.host != nil && c != n.Root() {
			return false
		}
		if c.tag == "input" && c.InputType() == "radio" && c.Name() == name {
			group = append(group, c)
		}
		return true
	})
	return group
}

// Options returns the <option> descendants of a <select>.
func (n *Node) Options() []*Node {
	var opts []*Node
	var walk func(*Node)
	walk = func(c *Node) {
		for _, ch := range c.children {
			if ch.tag == "option" {
				opts = append(opts, ch)
			} else if ch.tag == "optgroup" {
				walk(ch)
			}
		}
	}
	walk(n)
	return opts
}

// SelectedIndex returns the selected option index of a <select>.
func (n *Node) SelectedIndex() int {
	if n.tag != "select" {
		return -1
	}
	if n.selectedDirty {
		return n.selectedIndex
	}
	opts := n.Options()
	for i, o := range opts {
		if o.HasAttribute("selected") {
			return i
		}
	}
	if len(opts) > 0 && !n.HasAttribute("multiple") {
		return 0
	}
	return -1
}

// SetSelectedIndex assigns selectedIndex the way page scripts do.
func (n *Node) SetSelectedIndex(i int) {
	n.selectedIndex = i
	n.selectedDirty = true
	n.doc.notifyPropertySet(n, PropSelectedIndex)
}

// Selected reports whether an <option> is the selected one of its select.
func (n *Node) Selected() bool {
	if n.tag != "option" {
		return false
	}
	sel := n.parent
	if sel != nil && sel.tag == "optgroup" {
		sel = sel.parent
	}
	if sel == nil || sel.tag != "select" {
		return n.HasAttribute("selected")
	}
	opts := sel.Options()
	i := sel.SelectedIndex()
	return i >= 0 && i < len(opts) && opts[i] == n
}

// SetScroll records element scroll offsets.
func (n *Node) SetScroll(left, top float64) {
	n.scrollLeft, n.scrollTop = left, top
}

// Scroll returns the element scroll offsets.
func (n *Node) Scroll() (left, top float64) { return n.scrollLeft, n.scrollTop }

// SetRect records the element's bounding box size.
func (n *Node) SetRect(width, height float64) {
	n.width, n.height = width, height
}

// Rect returns the bounding box size. Elements without an explicit rect
// fall back to numeric width/height attributes.
func (n *Node) Rect() (width, height float64) {
	if n.width != 0 || n.height != 0 {
		return n.width, n.height
	}
	w, _ := strconv.ParseFloat(strings.TrimSuffix(n.GetAttribute("width"), "px"), 64)
	h, _ := strconv.ParseFloat(strings.TrimSuffix(n.GetAttribute("height"), "px"), 64)
	return w, h
}

// Paused reports the playback state of <audio>/<video>. Media starts
// paused unless autoplay is set.
func (n *Node) Paused() bool {
	return n.paused
}

// SetPaused records the playback state of a media element.
func (n *Node) SetPaused(paused bool) { n.paused = paused }

// IsMedia reports whether n is an <audio> or <video> element.
func (n *Node) IsMedia() bool { return n.tag == "audio" || n.tag == "video" }
