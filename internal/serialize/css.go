package serialize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/hazyhaar/domreplay/dom"
)

var (
	urlInCSS    = regexp.MustCompile(`url\((?:(')([^']*)'|(")([^"]*)"|([^)]*))\)`)
	absoluteURL = regexp.MustCompile(`^[A-Za-z]+:|^//`)
	dataURI     = regexp.MustCompile(`(?i)^data:.*,`)
)

// sheetText returns the rules of sheet with relative urls made absolute
// against the sheet href, or the document href for inline sheets.
func (c *Context) sheetText(sheet *dom.StyleSheet) string {
	base := sheet.Href()
	if base == "" && sheet.OwnerNode() != nil {
		base = sheet.OwnerNode().OwnerDocument().Href()
	}
	return AbsoluteURLs(sheet.CSSText(), base)
}

// AbsoluteURLs rewrites relative url(...) references of cssText against
// base. Absolute and data urls are left untouched.
func AbsoluteURLs(cssText, base string) string {
	if base == "" || !strings.Contains(cssText, "url(") {
		return cssText
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return cssText
	}
	return urlInCSS.ReplaceAllStringFunc(cssText, func(match string) string {
		m := urlInCSS.FindStringSubmatch(match)
		quote, raw := "", m[5]
		switch {
		case m[1] != "":
			quote, raw = m[1], m[2]
		case m[3] != "":
			quote, raw = m[3], m[4]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || absoluteURL.MatchString(raw) || dataURI.MatchString(raw) {
			return match
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return match
		}
		return "url(" + quote + baseURL.ResolveReference(ref).String() + quote + ")"
	})
}
