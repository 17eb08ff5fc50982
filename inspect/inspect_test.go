package inspect

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/internal/mutation"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/internal/segment"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/record"
)

func marshal(t *testing.T, r record.Record) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return b
}

func TestRebuild_MatchesFreshSnapshot(t *testing.T) {
	d, err := dom.ParseString(`<!DOCTYPE html><html><head><title>t</title></head><body>`+
		`<div id="a"><p id="p">hello</p></div><ul id="list"><li id="one">one</li></ul></body></html>`,
		"https://example.com/")
	require.NoError(t, err)
	res, err := privacy.NewResolver(privacy.Allow, nil, nil)
	require.NoError(t, err)
	reg := nodeid.New()
	scroll := serialize.NewScrollMap()
	timers := schedule.NewManual(time.Unix(100, 0), d.Run)

	initial := (&serialize.Context{Kind: serialize.InitialFullSnapshot, Registry: reg, Resolver: res, Scroll: scroll}).Document(d)
	records := [][]byte{marshal(t, record.FullSnapshot(0, initial, record.Offset{}))}

	tr := mutation.Start(d.Node(), mutation.Config{
		Registry: reg, Resolver: res, Timers: timers,
		Emit: func(r record.Record) { records = append(records, marshal(t, r)) },
	})
	defer tr.Stop()
	settle := func() {
		timers.RunIdle()
		timers.Advance(mutation.DefaultMinSpacing)
	}

	var section *dom.Node
	d.Run(func() {
		section = d.Element("section", []string{"class", "new"}, d.Element("b", nil, d.Text("bold")))
		d.Body().AppendChild(section)
		section.AppendChild(d.ElementByID("one"))
		d.ElementByID("p").FirstChild().SetData("changed")
		d.ElementByID("a").SetAttribute("title", "hi")
		list := d.ElementByID("list")
		list.RemoveAttribute("id")
		list.AppendChild(d.Element("li", nil, d.Text("two")))
	})
	settle()
	d.Run(func() {
		d.Body().InsertBefore(d.Element("header", nil), d.Body().FirstChild())
		section.FirstChild().Remove()
	})
	settle()
	require.Greater(t, len(records), 1)

	rebuilt, err := Rebuild(records)
	require.NoError(t, err)

	fresh := (&serialize.Context{Kind: serialize.SubsequentFullSnapshot, Registry: reg, Resolver: res, Scroll: scroll}).Document(d)
	want, err := FromDocument(fresh)
	require.NoError(t, err)
	assert.Equal(t, want.Render(), rebuilt.Render())
	assert.Equal(t, want.Len(), rebuilt.Len())
}

func TestRebuild_RejectsUnknownReferences(t *testing.T) {
	snap := marshal(t, record.FullSnapshot(0, &record.Document{ID: 1, ChildNodes: []record.Node{
		&record.Element{TagName: "html", ID: 2},
	}}, record.Offset{}))

	cases := map[string]record.MutationData{
		"parent": {Adds: []record.AddedNode{{ParentID: 9, Node: &record.Text{TextContent: "x", ID: 3}}}},
		"next": {Adds: []record.AddedNode{{ParentID: 2, NextID: new(int), Node: &record.Text{TextContent: "x", ID: 3}}}},
		"text":   {Texts: []record.TextMutation{{ID: 7}}},
		"remove": {Removes: []record.RemovedNode{{ParentID: 1, ID: 5}}},
		"dup":    {Adds: []record.AddedNode{{ParentID: 2, Node: &record.Text{TextContent: "x", ID: 2}}}},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			data.Source = record.SourceMutation
			_, err := Rebuild([][]byte{snap, marshal(t, record.Incremental(1, data))})
			assert.Error(t, err)
		})
	}

	_, err := Rebuild([][]byte{marshal(t, record.Incremental(1, record.MutationData{Source: record.SourceMutation}))})
	assert.Error(t, err, "mutation before snapshot")
}

func TestRebuild_AttributesAndShadowOrder(t *testing.T) {
	snap := marshal(t, record.FullSnapshot(0, &record.Document{ID: 1, ChildNodes: []record.Node{
		&record.Element{TagName: "div", ID: 2, Attributes: record.Attributes{"a": "1", "rr_scrollTop": 10},
			ChildNodes: []record.Node{&record.DocumentFragment{IsShadowRoot: true, ID: 3}}},
	}}, record.Offset{}))
	v := "2"
	mut := marshal(t, record.Incremental(1, record.MutationData{
		Source:     record.SourceMutation,
		Adds:       []record.AddedNode{{ParentID: 2, Node: &record.Text{TextContent: "light", ID: 4}}},
		Attributes: []record.AttributeMutation{{ID: 2, Attributes: map[string]*string{"a": nil, "b": &v}}},
	}))

	tree, err := Rebuild([][]byte{snap, mut})
	require.NoError(t, err)
	div, ok := tree.Node(2)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"b": "2", "rr_scrollTop": "10"}, div.Attributes)
	require.Len(t, div.Children, 2)
	assert.Equal(t, 4, div.Children[0].ID, "light children stay before the shadow root")
	assert.True(t, div.Children[1].IsShadowRoot)
}

func TestDecodeSummarize_EncodedSegment(t *testing.T) {
	ctx := context.Background()
	client, err := encoder.Start(ctx, encoder.Options{})
	require.NoError(t, err)
	defer client.Close()

	var flushed []segment.Flushed
	timers := schedule.NewManual(time.Unix(0, 0), func(fn func()) { fn() })
	col, err := segment.New(segment.Config{
		NewStream: func() segment.Stream { return client.NewStream() },
		Context: func() (record.SegmentContext, bool) {
			return record.SegmentContext{
				Application: record.IDRef{ID: "app"}, Session: record.IDRef{ID: "s"}, View: record.IDRef{ID: "v"},
			}, true
		},
		Timers:  timers,
		Deliver: func(f segment.Flushed) { flushed = append(flushed, f) },
	})
	require.NoError(t, err)

	require.NoError(t, col.AddRecord(record.Meta(10, "https://example.com/", 800, 600)))
	require.NoError(t, col.AddRecord(record.FullSnapshot(11, &record.Document{ID: 1}, record.Offset{})))
	require.NoError(t, col.AddRecord(record.Incremental(15, record.ScrollData{Source: record.SourceScroll, ID: 1, Y: 40})))
	col.Stop()
	require.Len(t, flushed, 1)

	raw, err := Decode(flushed[0].Result.Output)
	require.NoError(t, err)
	assert.Equal(t, flushed[0].Result.RawBytesCount, len(raw))

	sum, err := Summarize(raw)
	require.NoError(t, err)
	assert.Empty(t, sum.Problems)
	assert.Equal(t, 3, sum.Records)
	assert.Equal(t, 1, sum.ByType["full_snapshot"])
	assert.Equal(t, 1, sum.BySource["scroll"])
	assert.Equal(t, int64(10), sum.First)
	assert.Equal(t, int64(15), sum.Last)
	assert.Equal(t, "v", sum.Metadata.View.ID)
	assert.Equal(t, record.ReasonInit, sum.Metadata.CreationReason)
	assert.True(t, sum.Metadata.HasFullSnapshot)

	recs, err := Records(raw)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestSummarize_ReportsInconsistencies(t *testing.T) {
	raw := []byte(`{"records":[{"type":4,"timestamp":5,"data":{"href":"x","width":1,"height":1}}],` +
		`"start":1,"end":5,"records_count":2,"creation_reason":"init","has_full_snapshot":true,` +
		`"index_in_view":0,"source":"browser"}` + "\n")
	sum, err := Summarize(raw)
	require.NoError(t, err)
	assert.Len(t, sum.Problems, 3)

	_, err = Summarize([]byte(`{"start":1}`))
	assert.Error(t, err)
}
