package mutation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/record"
)

type fixture struct {
	doc     *dom.Document
	timers  *schedule.Manual
	reg     *nodeid.Registry
	tracker *Tracker
	shadow  *shadowSpy
	records []record.Record
	dropped int
}

type shadowSpy struct{ added, removed []*dom.Node }

func (s *shadowSpy) AddShadowRoot(r *dom.Node)    { s.added = append(s.added, r) }
func (s *shadowSpy) RemoveShadowRoot(r *dom.Node) { s.removed = append(s.removed, r) }

func setup(t *testing.T, src string, def privacy.Level) *fixture {
	t.Helper()
	d, err := dom.ParseString(src, "https://example.com/")
	require.NoError(t, err)
	res, err := privacy.NewResolver(def, nil, nil)
	require.NoError(t, err)
	f := &fixture{doc: d, reg: nodeid.New(), shadow: &shadowSpy{}}
	f.timers = schedule.NewManual(time.Unix(1000, 0), d.Run)

	ctx := &serialize.Context{Kind: serialize.InitialFullSnapshot, Registry: f.reg, Resolver: res, Scroll: serialize.NewScrollMap(), Shadow: f.shadow}
	require.NotNil(t, ctx.Document(d))

	f.tracker = Start(d.Node(), Config{
		Registry: f.reg,
		Resolver: res,
		Shadow:   f.shadow,
		Timers:   f.timers,
		Emit:     func(r record.Record) { f.records = append(f.records, r) },
		OnDrop:   func(n int) { f.dropped += n },
	})
	t.Cleanup(f.tracker.Stop)
	return f
}

func (f *fixture) settle() {
	f.timers.RunIdle()
	f.timers.Advance(DefaultMinSpacing)
}

func (f *fixture) id(t *testing.T, n *dom.Node) int {
	t.Helper()
	id, ok := f.reg.ID(n)
	require.True(t, ok)
	return id
}

func mutations(t *testing.T, r record.Record) record.MutationData {
	t.Helper()
	require.Equal(t, record.TypeIncrementalSnapshot, r.Type)
	data, ok := r.Data.(record.MutationData)
	require.True(t, ok)
	return data
}

func TestTracker_AddedSubtreeSerializedOnceParentFirst(t *testing.T) {
	f := setup(t, `<body><div id="root"></div></body>`, privacy.Allow)
	root := f.doc.ElementByID("root")

	f.doc.Run(func() {
		ul := f.doc.CreateElement("ul")
		root.AppendChild(ul)
		li := f.doc.CreateElement("li")
		ul.AppendChild(li)
		li.AppendChild(f.doc.CreateTextNode("item"))
	})
	f.settle()

	require.Len(t, f.records, 1)
	data := mutations(t, f.records[0])
	require.Len(t, data.Adds, 1, "descendants travel inside their ancestor")
	assert.Equal(t, f.id(t, root), data.Adds[0].ParentID)
	assert.Nil(t, data.Adds[0].NextID)
	ul := data.Adds[0].Node.(*record.Element)
	assert.Equal(t, "ul", ul.TagName)
	require.Len(t, ul.ChildNodes, 1)
}

func TestTracker_AddsNeverReferenceUnknownParents(t *testing.T) {
	f := setup(t, `<body><div id="root"><p id="keep"></p></div></body>`, privacy.Allow)
	root := f.doc.ElementByID("root")

	f.doc.Run(func() {
		a := f.doc.CreateElement("section")
		root.AppendChild(a)
		b := f.doc.CreateElement("article")
		a.AppendChild(b)
		c := f.doc.CreateElement("span")
		root.InsertBefore(c, f.doc.ElementByID("keep"))
		// b moves under c after both were attached.
		c.AppendChild(b)
	})
	f.settle()

	require.Len(t, f.records, 1)
	data := mutations(t, f.records[0])
	known := map[int]bool{}
	for _, id := range []int{f.id(t, root), f.id(t, f.doc.ElementByID("keep"))} {
		known[id] = true
	}
	for _, add := range data.Adds {
		assert.True(t, known[add.ParentID], "parent %d must precede its child", add.ParentID)
		if add.NextID != nil {
			assert.True(t, known[*add.NextID], "next sibling %d must already exist", *add.NextID)
		}
		record.Walk(add.Node, func(n record.Node) { known[n.NodeID()] = true })
	}
}

func TestTracker_AddedThenRemovedIsDropped(t *testing.T) {
	f := setup(t, `<body><div id="root"></div></body>`, privacy.Allow)
	root := f.doc.ElementByID("root")
	f.doc.Run(func() {
		tmp := f.doc.CreateElement("i")
		root.AppendChild(tmp)
		root.RemoveChild(tmp)
	})
	f.settle()
	assert.Empty(t, f.records)
}

func TestTracker_MoveEmitsRemoveThenAdd(t *testing.T) {
	f := setup(t, `<body><div id="a"><b id="x"></b></div><div id="b"></div></body>`, privacy.Allow)
	x := f.doc.ElementByID("x")
	xID := f.id(t, x)
	f.doc.Run(func() {
		f.doc.ElementByID("b").AppendChild(x)
	})
	f.settle()

	require.Len(t, f.records, 1)
	data := mutations(t, f.records[0])
	require.Len(t, data.Removes, 1)
	assert.Equal(t, record.RemovedNode{ParentID: f.id(t, f.doc.ElementByID("a")), ID: xID}, data.Removes[0])
	require.Len(t, data.Adds, 1)
	assert.Equal(t, xID, data.Adds[0].Node.NodeID(), "ids are stable across moves")
	assert.Equal(t, f.id(t, f.doc.ElementByID("b")), data.Adds[0].ParentID)
}

func TestTracker_NextIDSkipsPendingSiblings(t *testing.T) {
	f := setup(t, `<body><div id="root"><p id="c"></p></div></body>`, privacy.Allow)
	root, c := f.doc.ElementByID("root"), f.doc.ElementByID("c")
	f.doc.Run(func() {
		root.InsertBefore(f.doc.CreateElement("em"), c)
		root.InsertBefore(f.doc.CreateElement("strong"), c)
	})
	f.settle()

	data := mutations(t, f.records[0])
	require.Len(t, data.Adds, 2)
	assert.Equal(t, "em", data.Adds[0].Node.(*record.Element).TagName)
	assert.Equal(t, "strong", data.Adds[1].Node.(*record.Element).TagName)
	for _, add := range data.Adds {
		require.NotNil(t, add.NextID)
		assert.Equal(t, f.id(t, c), *add.NextID)
	}
}

func TestTracker_TextNoOpAndChanges(t *testing.T) {
	f := setup(t, `<body><p id="p">a</p><p id="q">b</p></body>`, privacy.Allow)
	pText := f.doc.ElementByID("p").FirstChild()
	qText := f.doc.ElementByID("q").FirstChild()
	f.doc.Run(func() {
		pText.SetData("changed")
		pText.SetData("a")
		qText.SetData("one")
		qText.SetData("two")
	})
	f.settle()

	require.Len(t, f.records, 1)
	data := mutations(t, f.records[0])
	require.Len(t, data.Texts, 1)
	assert.Equal(t, f.id(t, qText), data.Texts[0].ID)
	require.NotNil(t, data.Texts[0].Value)
	assert.Equal(t, "two", *data.Texts[0].Value)
}

func TestTracker_MaskedTextAndValueAttribute(t *testing.T) {
	f := setup(t, `<body><p id="p">a</p><input id="pw" type="password"></body>`, privacy.Allow)
	pText := f.doc.ElementByID("p").FirstChild()
	pw := f.doc.ElementByID("pw")
	f.doc.Run(func() {
		f.doc.ElementByID("p").SetAttribute(privacy.AttrName, "mask")
		pText.SetData("secret word")
		pw.SetValue("hunter2")
		pw.SetAttribute("value", "hunter2")
	})
	f.settle()

	data := mutations(t, f.records[0])
	require.Len(t, data.Texts, 1)
	assert.Equal(t, "xxxxxx xxxx", *data.Texts[0].Value)
	var pwAttrs map[string]*string
	for _, a := range data.Attributes {
		if a.ID == f.id(t, pw) {
			pwAttrs = a.Attributes
		}
	}
	require.NotNil(t, pwAttrs)
	assert.Equal(t, serialize.CensorMark, *pwAttrs["value"])
}

func TestTracker_HiddenTargetsAreDiscarded(t *testing.T) {
	f := setup(t, `<body><div id="h" data-dd-privacy="hidden"></div></body>`, privacy.Allow)
	h := f.doc.ElementByID("h")
	f.doc.Run(func() {
		h.SetAttribute("class", "x")
		h.AppendChild(f.doc.CreateElement("span"))
	})
	f.settle()
	assert.Empty(t, f.records)
	assert.Equal(t, 2, f.dropped)
}

func TestTracker_AttributeRemovalIsNull(t *testing.T) {
	f := setup(t, `<body><div id="d" class="a"></div></body>`, privacy.Allow)
	d := f.doc.ElementByID("d")
	f.doc.Run(func() {
		d.RemoveAttribute("class")
		d.SetAttribute("title", "t")
		d.SetAttribute("title", "u")
	})
	f.settle()

	data := mutations(t, f.records[0])
	require.Len(t, data.Attributes, 1)
	attrs := data.Attributes[0].Attributes
	assert.Contains(t, attrs, "class")
	assert.Nil(t, attrs["class"])
	assert.Equal(t, "u", *attrs["title"])
}

func TestTracker_IdleReflushIsNoOp(t *testing.T) {
	f := setup(t, `<body><div id="d"></div></body>`, privacy.Allow)
	f.doc.Run(func() { f.doc.ElementByID("d").SetAttribute("k", "v") })
	f.doc.Run(f.tracker.Flush)
	require.Len(t, f.records, 1)

	f.settle()
	f.timers.Advance(time.Second)
	assert.Len(t, f.records, 1)
}

func TestTracker_FlushMergesUndeliveredRecords(t *testing.T) {
	f := setup(t, `<body><div id="d"></div></body>`, privacy.Allow)
	f.doc.Run(func() {
		f.doc.ElementByID("d").SetAttribute("k", "v")
		f.tracker.Flush()
		assert.Len(t, f.records, 1, "flush inside the turn sees not-yet-delivered notifications")
	})
	f.settle()
	assert.Len(t, f.records, 1)
}

func TestTracker_RemovedHostRetiresShadowRoot(t *testing.T) {
	f := setup(t, `<body><div id="wrap"><div id="host"></div></div></body>`, privacy.Allow)
	host := f.doc.ElementByID("host")
	var sr *dom.Node
	f.doc.Run(func() {
		sr = host.AttachShadow("open")
	})
	f.doc.Run(func() { f.doc.ElementByID("wrap").Remove() })
	f.settle()
	assert.Equal(t, []*dom.Node{sr}, f.shadow.removed)
}
