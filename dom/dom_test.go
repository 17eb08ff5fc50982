package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseString(src, "https://example.com/app/index.html")
	require.NoError(t, err)
	return d
}

func TestParse_BuildsTree(t *testing.T) {
	d := mustParse(t, `<!DOCTYPE html><html><head><title>T</title></head><body><p id="a">hi</p><svg><rect/></svg></body></html>`)

	first := d.Node().FirstChild()
	require.NotNil(t, first)
	assert.Equal(t, DocumentTypeNode, first.Type())
	name, _, _ := first.DoctypeName()
	assert.Equal(t, "html", name)

	p := d.ElementByID("a")
	require.NotNil(t, p)
	assert.Equal(t, "hi", p.TextContent())
	assert.True(t, p.IsConnected())

	svg := d.QuerySelectorAll(func(n *Node) bool { return n.TagName() == "rect" })
	require.Len(t, svg, 1)
	assert.True(t, svg[0].IsSVG())
}

func TestParse_DeclarativeShadowRoot(t *testing.T) {
	d := mustParse(t, `<body><div id="host"><template shadowrootmode="open"><span>in</span></template><b>light</b></div></body>`)

	host := d.ElementByID("host")
	require.NotNil(t, host)
	sr := host.ShadowRoot()
	require.NotNil(t, sr)
	assert.True(t, sr.IsShadowRoot())
	assert.Equal(t, "in", sr.FirstChild().TextContent())
	require.Len(t, host.ChildNodes(), 1)
	assert.True(t, sr.FirstChild().IsConnected())
}

func TestMutationObserver_DeliversAtEndOfTurn(t *testing.T) {
	d := mustParse(t, `<body><div id="x"></div></body>`)
	var got [][]MutationRecord
	obs := d.NewMutationObserver(func(recs []MutationRecord) { got = append(got, recs) })
	obs.Observe(d.Node())

	d.Run(func() {
		x := d.ElementByID("x")
		x.SetAttribute("class", "a")
		x.AppendChild(d.CreateTextNode("t"))
		assert.Empty(t, got, "delivery waits for the end of the turn")
	})

	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, MutationAttributes, got[0][0].Type)
	assert.Nil(t, got[0][0].OldValue)
	assert.Equal(t, MutationChildList, got[0][1].Type)
}

func TestMutationObserver_TakeRecordsAndDisconnect(t *testing.T) {
	d := mustParse(t, `<body><div id="x">a</div></body>`)
	calls := 0
	obs := d.NewMutationObserver(func([]MutationRecord) { calls++ })
	obs.Observe(d.Node())

	d.Run(func() {
		txt := d.ElementByID("x").FirstChild()
		txt.SetData("b")
		recs := obs.TakeRecords()
		require.Len(t, recs, 1)
		require.NotNil(t, recs[0].OldValue)
		assert.Equal(t, "a", *recs[0].OldValue)
	})
	assert.Zero(t, calls)

	obs.Disconnect()
	d.Run(func() { d.ElementByID("x").SetAttribute("k", "v") })
	assert.Zero(t, calls)
}

func TestMutationObserver_ShadowTreeNeedsOwnObservation(t *testing.T) {
	d := mustParse(t, `<body><div id="host"></div></body>`)
	host := d.ElementByID("host")
	sr := host.AttachShadow("open")

	var docRecs, shadowRecs int
	d.NewMutationObserver(func(r []MutationRecord) { docRecs += len(r) }).Observe(d.Node())
	d.NewMutationObserver(func(r []MutationRecord) { shadowRecs += len(r) }).Observe(sr)

	d.Run(func() { sr.AppendChild(d.CreateElement("i")) })
	assert.Zero(t, docRecs)
	assert.Equal(t, 1, shadowRecs)
}

func TestComparePosition(t *testing.T) {
	d := mustParse(t, `<body><div id="a"><span id="b"></span></div><div id="c"></div></body>`)
	a, b, c := d.ElementByID("a"), d.ElementByID("b"), d.ElementByID("c")
	sr := a.AttachShadow("open")
	inner := d.CreateElement("em")
	sr.AppendChild(inner)

	assert.Equal(t, -1, ComparePosition(a, b))
	assert.Equal(t, 1, ComparePosition(b, a))
	assert.Equal(t, -1, ComparePosition(b, c))
	assert.Equal(t, -1, ComparePosition(b, inner), "shadow tree follows light children")
	assert.Equal(t, -1, ComparePosition(inner, c))
	assert.Equal(t, 0, ComparePosition(a, d.CreateElement("p")))
}

func TestRadioGroup_CheckUnchecksSiblings(t *testing.T) {
	d := mustParse(t, `<body><input type="radio" name="g" id="r1" checked><input type="radio" name="g" id="r2"></body>`)
	r1, r2 := d.ElementByID("r1"), d.ElementByID("r2")
	require.True(t, r1.Checked())

	var hooked []string
	d.OnPropertySet(func(n *Node, prop string) { hooked = append(hooked, n.GetAttribute("id")+"."+prop) })

	d.Run(func() { r2.SetChecked(true) })
	assert.False(t, r1.Checked())
	assert.True(t, r2.Checked())
	assert.Equal(t, []string{"r2.checked"}, hooked)

	d.Run(func() { r1.EditChecked(true) })
	assert.False(t, r2.Checked())
	assert.Len(t, hooked, 1, "user edits bypass setter hooks")
}

func TestSelect_ValueAndSelected(t *testing.T) {
	d := mustParse(t, `<body><select id="s"><option value="a">A</option><option value="b" selected>B</option></select></body>`)
	s := d.ElementByID("s")
	assert.Equal(t, "b", s.Value())
	assert.Equal(t, 1, s.SelectedIndex())
	s.EditValue("a")
	assert.Equal(t, 0, s.SelectedIndex())
	assert.True(t, s.Options()[0].Selected())
	assert.False(t, s.Options()[1].Selected())
}

func TestDispatch_RetargetsAcrossShadowBoundary(t *testing.T) {
	d := mustParse(t, `<body><div id="host"></div></body>`)
	host := d.ElementByID("host")
	sr := host.AttachShadow("open")
	input := d.CreateElement("input")
	sr.AppendChild(input)

	var docTargets, shadowTargets []*Node
	d.AddEventListener(d.Node(), EventInput, func(e *Event) { docTargets = append(docTargets, e.EffectiveTarget()) })
	d.AddEventListener(d.Node(), EventChange, func(e *Event) { docTargets = append(docTargets, e.EffectiveTarget()) })
	d.AddEventListener(sr, EventChange, func(e *Event) { shadowTargets = append(shadowTargets, e.EffectiveTarget()) })

	d.Run(func() {
		d.Dispatch(&Event{Type: EventInput, Target: input, Composed: true})
		d.Dispatch(&Event{Type: EventChange, Target: input})
	})
	assert.Equal(t, []*Node{input}, docTargets, "composed input reaches the document, change does not")
	assert.Equal(t, []*Node{input}, shadowTargets)
}

func TestDispatch_RemoveListener(t *testing.T) {
	d := NewDocument("about:blank")
	n := 0
	remove := d.AddEventListener(nil, EventResize, func(*Event) { n++ })
	d.Dispatch(&Event{Type: EventResize})
	remove()
	d.Dispatch(&Event{Type: EventResize})
	assert.Equal(t, 1, n)
}

func TestStyleSheet_ParseAndNestedRules(t *testing.T) {
	d := mustParse(t, `<head><style>/* c */ a { color: red } @media (min-width: 1px) { b { top: 0 } }</style></head>`)
	style := d.QuerySelectorAll(func(n *Node) bool { return n.TagName() == "style" })[0]
	sheet := style.Sheet()
	require.NotNil(t, sheet)
	rules := sheet.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a { color: red }", rules[0].CSSText())
	require.True(t, rules[1].IsGrouping())
	assert.Equal(t, "@media (min-width: 1px) { b { top: 0 } }", rules[1].CSSText())

	var changes []RuleChange
	d.OnStyleSheetChange(func(c RuleChange) { changes = append(changes, c) })

	_, err := rules[1].InsertRule("i { left: 0 }", 1)
	require.NoError(t, err)
	nested := rules[1].Rules()[1]
	assert.Equal(t, []int{1, 1}, nested.Path())

	_, err = sheet.InsertRule("p { margin: 0 }", 5)
	assert.ErrorIs(t, err, ErrIndexSize)
	require.NoError(t, sheet.DeleteRule(0))

	require.Len(t, changes, 2)
	assert.Equal(t, RuleInserted, changes[0].Op)
	assert.Same(t, rules[1], changes[0].Parent)
	assert.Equal(t, RuleDeleted, changes[1].Op)
	assert.Nil(t, changes[1].Parent)
}
