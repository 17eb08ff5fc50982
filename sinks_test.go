package domreplay

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/record"
)

func TestBuildSinks_SpoolAndJSONLines(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "segments.jsonl")
	sinks, err := BuildSinks([]SinkConfig{
		{Type: "spool", Path: filepath.Join(dir, "spool", "segments.db")},
		{Type: "jsonl", Path: jsonl},
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, sinks.Spool)

	meta := record.SegmentMetadata{
		SegmentContext: record.SegmentContext{View: record.IDRef{ID: "v1"}, Session: record.IDRef{ID: "s"}},
		Start:          1, End: 2, RecordsCount: 1, CreationReason: record.ReasonInit, Source: "browser",
	}
	p, err := payload.Build(encoder.Result{Output: []byte{1, 2}, OutputBytesCount: 2, RawBytesCount: 10}, meta, record.ReasonStop)
	require.NoError(t, err)
	require.NoError(t, sinks.Send(context.Background(), p))

	n, err := sinks.Spool.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, sinks.Close())

	b, err := os.ReadFile(jsonl)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), "\n"))
	assert.Contains(t, string(b), `"filename":"s-1"`)
}

func TestBuildSinks_UnknownType(t *testing.T) {
	_, err := BuildSinks([]SinkConfig{{Type: "kafka"}}, nil)
	assert.ErrorContains(t, err, "unknown sink type")
}
