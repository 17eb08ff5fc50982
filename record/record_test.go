package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeMarshal_CarriesTypeAndEmptyChildren(t *testing.T) {
	doc := &Document{ID: 1, ChildNodes: []Node{
		&DocumentType{Name: "html", ID: 2},
		&Element{TagName: "div", ID: 3, Attributes: Attributes{"rr_scrollTop": 10}},
		&DocumentFragment{IsShadowRoot: true, ID: 4},
	}}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":0,"id":1,"childNodes":[
		{"type":1,"name":"html","publicId":"","systemId":"","id":2},
		{"type":2,"tagName":"div","attributes":{"rr_scrollTop":10},"childNodes":[],"id":3},
		{"type":11,"childNodes":[],"isShadowRoot":true,"id":4}
	]}`, string(b))
}

func TestIncrementalRecord_NullNextID(t *testing.T) {
	rec := Incremental(5, MutationData{
		Adds:       []AddedNode{{ParentID: 1, Node: &Text{TextContent: "x", ID: 2}}},
		Removes:    []RemovedNode{},
		Texts:      []TextMutation{},
		Attributes: []AttributeMutation{},
	})
	assert.Equal(t, SourceMutation, rec.Source())
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":3,"timestamp":5,"data":{"source":0,
		"adds":[{"parentId":1,"nextId":null,"node":{"type":3,"textContent":"x","id":2}}],
		"removes":[],"texts":[],"attributes":[]}}`, string(b))
}

func TestRuleIndex_NumberOrPath(t *testing.T) {
	b, err := json.Marshal(StyleSheetRuleData{Source: SourceStyleSheetRule, ID: 3,
		Adds: []StyleSheetAdd{{Rule: "a{}", Index: RuleIndex{2}}, {Rule: "b{}", Index: RuleIndex{1, 0}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":8,"id":3,"adds":[{"rule":"a{}","index":2},{"rule":"b{}","index":[1,0]}]}`, string(b))

	var idx RuleIndex
	require.NoError(t, json.Unmarshal([]byte(`[1,0]`), &idx))
	assert.Equal(t, RuleIndex{1, 0}, idx)
	require.NoError(t, json.Unmarshal([]byte(`4`), &idx))
	assert.Equal(t, RuleIndex{4}, idx)
}

func TestEventMetadata_FlatFields(t *testing.T) {
	ev := EventMetadata{
		SegmentMetadata: SegmentMetadata{
			SegmentContext: SegmentContext{
				Application: IDRef{ID: "app"}, Session: IDRef{ID: "sess"}, View: IDRef{ID: "view"},
			},
			Start: 10, End: 20, RecordsCount: 2, CreationReason: ReasonInit,
			HasFullSnapshot: true, Source: "browser",
		},
		RawSegmentSize: 100, CompressedSegmentSize: 40,
	}
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"application":{"id":"app"},"session":{"id":"sess"},"view":{"id":"view"},
		"start":10,"end":20,"records_count":2,"creation_reason":"init","has_full_snapshot":true,
		"index_in_view":0,"source":"browser","raw_segment_size":100,"compressed_segment_size":40}`, string(b))
}

func TestCreationReason_IsPageExit(t *testing.T) {
	assert.True(t, ReasonPageHide.IsPageExit())
	assert.True(t, ReasonBeforeUnload.IsPageExit())
	assert.False(t, ReasonStop.IsPageExit())
	assert.False(t, ReasonSegmentBytesLimit.IsPageExit())
}
