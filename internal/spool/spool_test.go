package spool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/internal/dbopen"
	"github.com/hazyhaar/domreplay/internal/idgen"
	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/record"
)

func testPayload(view string, index int, reason record.FlushReason) payload.Payload {
	meta := record.EventMetadata{
		SegmentMetadata: record.SegmentMetadata{
			SegmentContext: record.SegmentContext{
				Application: record.IDRef{ID: "app"},
				Session:     record.IDRef{ID: "sess"},
				View:        record.IDRef{ID: view},
			},
			Start: int64(100 * index), End: int64(100*index + 50), RecordsCount: 3,
			CreationReason: record.ReasonInit, IndexInView: index, Source: "browser",
		},
		RawSegmentSize: 120, CompressedSegmentSize: 4,
	}
	return payload.Payload{Metadata: meta, Segment: []byte{1, 2, 3, 4}, Reason: reason}
}

func TestSpool_SendListGet(t *testing.T) {
	ctx := context.Background()
	s, err := New(dbopen.OpenMemory(t), WithIDGenerator(idgen.Sequence("seg")))
	require.NoError(t, err)

	require.NoError(t, s.Send(ctx, testPayload("v1", 0, record.ReasonSegmentBytesLimit)))
	require.NoError(t, s.SendOnExit(ctx, testPayload("v1", 1, record.ReasonPageHide)))
	require.NoError(t, s.Send(ctx, testPayload("v2", 0, record.ReasonStop)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := s.List(ctx, "v1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Nil(t, e.Segment)
		assert.Equal(t, "v1", e.Event.View.ID)
	}

	e, err := s.Get(ctx, "seg-2")
	require.NoError(t, err)
	assert.True(t, e.Exit)
	assert.Equal(t, record.ReasonPageHide, e.FlushReason)
	assert.Equal(t, 1, e.Event.IndexInView)
	assert.Equal(t, []byte{1, 2, 3, 4}, e.Segment)
	assert.Equal(t, 120, e.Event.RawSegmentSize)
}

func TestSpool_GetUnknown(t *testing.T) {
	s, err := New(dbopen.OpenMemory(t))
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
