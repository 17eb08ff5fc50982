package serialize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/record"
)

type shadowSpy struct{ roots []*dom.Node }

func (s *shadowSpy) AddShadowRoot(root *dom.Node) { s.roots = append(s.roots, root) }

func newContext(t *testing.T, def privacy.Level, kind Kind) *Context {
	t.Helper()
	r, err := privacy.NewResolver(def, nil, nil)
	require.NoError(t, err)
	return &Context{
		Kind:     kind,
		Registry: nodeid.New(),
		Resolver: r,
		Scroll:   NewScrollMap(),
		Shadow:   &shadowSpy{},
	}
}

func parse(t *testing.T, src string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(src, "https://example.com/app/")
	require.NoError(t, err)
	return d
}

// find returns the first serialized element with the given id attribute.
func find(root record.Node, id string) *record.Element {
	var found *record.Element
	record.Walk(root, func(n record.Node) {
		if el, ok := n.(*record.Element); ok && found == nil && el.Attributes["id"] == id {
			found = el
		}
	})
	return found
}

func TestDocument_PasswordInputIsMasked(t *testing.T) {
	d := parse(t, `<body><input id="pw" type="password" value="hunter2"></body>`)
	d.ElementByID("pw").EditValue("secret")
	c := newContext(t, privacy.Allow, InitialFullSnapshot)

	snap := c.Document(d)
	pw := find(snap, "pw")
	require.NotNil(t, pw)
	assert.Equal(t, CensorMark, pw.Attributes["value"])

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
}

func TestDocument_HiddenSubtreeBecomesPlaceholder(t *testing.T) {
	d := parse(t, `<body><div id="h" data-dd-privacy="hidden"><p>private</p></div></body>`)
	h := d.ElementByID("h")
	h.SetRect(120, 40.5)
	c := newContext(t, privacy.Allow, InitialFullSnapshot)

	snap := c.Document(d)
	var placeholder *record.Element
	record.Walk(snap, func(n record.Node) {
		if el, ok := n.(*record.Element); ok && el.Attributes[privacy.AttrName] == "hidden" {
			placeholder = el
		}
	})
	require.NotNil(t, placeholder)
	assert.Equal(t, record.Attributes{"rr_width": "120px", "rr_height": "40.5px", privacy.AttrName: "hidden"}, placeholder.Attributes)
	assert.Empty(t, placeholder.ChildNodes)
	_, ok := c.Registry.ID(h.FirstChild())
	assert.False(t, ok, "hidden descendants are never serialized")
}

func TestDocument_MaskedTextAndAttributes(t *testing.T) {
	d := parse(t, `<head><title>Title</title>
</head><body>
<p id="p" title="tip" data-user="bob" data-testid="keep">Hello world</p>
<a id="a" href="/x">link</a>
<img id="i" src="/a.png" alt="pic">
<select id="s"><option value="1">One</option></select>
<script>var x = 1</script>
</body>`)
	d.ElementByID("i").SetRect(10, 20)
	c := newContext(t, privacy.Mask, InitialFullSnapshot)
	snap := c.Document(d)

	p := find(snap, "p")
	require.NotNil(t, p)
	assert.Equal(t, CensorMark, p.Attributes["title"])
	assert.Equal(t, CensorMark, p.Attributes["data-user"])
	assert.Equal(t, "keep", p.Attributes["data-testid"])
	require.Len(t, p.ChildNodes, 1)
	assert.Equal(t, "xxxxx xxxxx", p.ChildNodes[0].(*record.Text).TextContent)

	assert.Equal(t, CensorMark, find(snap, "a").Attributes["href"])
	img := find(snap, "i")
	assert.Equal(t, CensoredImageForSize(10, 20), img.Attributes["src"])
	assert.Equal(t, CensorMark, img.Attributes["alt"])

	sel := find(snap, "s")
	require.NotNil(t, sel)
	opt := sel.ChildNodes[0].(*record.Element)
	assert.Equal(t, CensorMark, opt.ChildNodes[0].(*record.Text).TextContent)
	assert.NotContains(t, opt.Attributes, "selected")

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "var x")
	assert.False(t, strings.Contains(string(b), "Hello"))
}

func TestDocument_ScriptsAreOmittedAndHeadWhitespaceDropped(t *testing.T) {
	d := parse(t, "<head>\n  <meta charset=\"utf-8\">\n  <script>1</script>\n</head><body> </body>")
	c := newContext(t, privacy.Allow, InitialFullSnapshot)
	snap := c.Document(d)

	var head *record.Element
	record.Walk(snap, func(n record.Node) {
		if el, ok := n.(*record.Element); ok && el.TagName == "head" {
			head = el
		}
	})
	require.NotNil(t, head)
	require.Len(t, head.ChildNodes, 1)
	assert.Equal(t, "meta", head.ChildNodes[0].(*record.Element).TagName)
}

func TestDocument_FormStateUnderAllow(t *testing.T) {
	d := parse(t, `<body><input id="c" type="checkbox" checked><select id="s"><option id="o1" value="a">A</option><option id="o2" value="b" selected>B</option></select><video id="v"></video></body>`)
	c := newContext(t, privacy.Allow, InitialFullSnapshot)
	snap := c.Document(d)

	assert.Equal(t, true, find(snap, "c").Attributes["checked"])
	assert.Equal(t, "b", find(snap, "s").Attributes["value"])
	assert.Equal(t, true, find(snap, "o2").Attributes["selected"])
	assert.NotContains(t, find(snap, "o1").Attributes, "selected")
	assert.Equal(t, "paused", find(snap, "v").Attributes["rr_mediaState"])
}

func TestDocument_ScrollPositionsRoundTripThroughMap(t *testing.T) {
	d := parse(t, `<body><div id="d"></div></body>`)
	div := d.ElementByID("d")
	div.SetScroll(4.6, 10.2)
	c := newContext(t, privacy.Allow, InitialFullSnapshot)

	snap := c.Document(d)
	assert.Equal(t, 5.0, find(snap, "d").Attributes["rr_scrollLeft"])
	assert.Equal(t, 10.0, find(snap, "d").Attributes["rr_scrollTop"])

	div.SetScroll(0, 0)
	c.Kind = SubsequentFullSnapshot
	snap = c.Document(d)
	assert.Equal(t, 10.0, find(snap, "d").Attributes["rr_scrollTop"])

	c.Kind = Mutation
	el := c.Node(div, privacy.Allow).(*record.Element)
	assert.NotContains(t, el.Attributes, "rr_scrollTop")
}

func TestDocument_ShadowRootAfterLightChildren(t *testing.T) {
	d := parse(t, `<body><div id="host"><b>light</b></div></body>`)
	host := d.ElementByID("host")
	sr := host.AttachShadow("open")
	sr.AppendChild(d.CreateElement("slot"))
	c := newContext(t, privacy.Allow, InitialFullSnapshot)

	snap := c.Document(d)
	h := find(snap, "host")
	require.Len(t, h.ChildNodes, 2)
	frag, ok := h.ChildNodes[1].(*record.DocumentFragment)
	require.True(t, ok)
	assert.True(t, frag.IsShadowRoot)
	assert.Equal(t, []*dom.Node{sr}, c.Shadow.(*shadowSpy).roots)
	assert.True(t, c.Registry.AncestorsSerialized(sr.FirstChild()))
}

func TestDocument_IDsAreStableAcrossSnapshots(t *testing.T) {
	d := parse(t, `<body><p id="p">x</p></body>`)
	c := newContext(t, privacy.Allow, InitialFullSnapshot)
	first := c.Document(d)
	c.Kind = SubsequentFullSnapshot
	second := c.Document(d)
	assert.Equal(t, find(first, "p").ID, find(second, "p").ID)
	assert.Equal(t, first.ID, second.ID)
}

func TestStyleSheetURLsBecomeAbsolute(t *testing.T) {
	d := parse(t, `<head><style>a { background: url("img/a.png") } b { background: url(data:image/png;base64,AA) } i { background: url(//cdn.example.com/x.png) }</style><link id="l" rel="stylesheet" href="/s.css"></head>`)
	link := d.ElementByID("l")
	link.SetSheet(`.x { background: url('../y.png') }`, "https://static.example.com/css/s.css")
	c := newContext(t, privacy.Allow, InitialFullSnapshot)
	snap := c.Document(d)

	var style *record.Element
	record.Walk(snap, func(n record.Node) {
		if el, ok := n.(*record.Element); ok && el.TagName == "style" {
			style = el
		}
	})
	require.NotNil(t, style)
	css := style.Attributes["_cssText"].(string)
	assert.Contains(t, css, `url("https://example.com/app/img/a.png")`)
	assert.Contains(t, css, `url(data:image/png;base64,AA)`)
	assert.Contains(t, css, `url(//cdn.example.com/x.png)`)
	assert.Empty(t, style.ChildNodes)

	assert.Equal(t, `.x { background: url('https://static.example.com/y.png') }`, find(snap, "l").Attributes["_cssText"])
}

func TestInputValue(t *testing.T) {
	d := parse(t, `<body><input id="b" type="submit" value="Go"><input id="t" value=""><textarea id="ta">note</textarea><div id="d"></div></body>`)
	v, ok := InputValue(d.ElementByID("b"), privacy.Mask)
	assert.True(t, ok)
	assert.Equal(t, "Go", v)
	_, ok = InputValue(d.ElementByID("t"), privacy.Mask)
	assert.False(t, ok)
	v, ok = InputValue(d.ElementByID("ta"), privacy.MaskUserInput)
	assert.True(t, ok)
	assert.Equal(t, CensorMark, v)
	_, ok = InputValue(d.ElementByID("d"), privacy.Allow)
	assert.False(t, ok)
}

func TestValidTagName(t *testing.T) {
	assert.Equal(t, "div", ValidTagName("my:tag"))
	assert.Equal(t, "custom-el", ValidTagName("CUSTOM-EL"))
	assert.Equal(t, "h1", ValidTagName("H1"))
}

func TestLongDataURLsAreTruncated(t *testing.T) {
	d := parse(t, `<body><img id="i"></body>`)
	img := d.ElementByID("i")
	img.SetAttribute("src", "data:image/png;base64,"+strings.Repeat("A", MaxAttributeValueLength))
	c := newContext(t, privacy.Allow, InitialFullSnapshot)
	v, ok := c.Attribute(img, privacy.Allow, "src")
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,truncated", v)
}
