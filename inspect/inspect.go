// CLAUDE:SUMMARY Decodes compressed segments, summarizes their records and rebuilds the node tree they describe.
// Package inspect reads back recorded segments: it inflates the
// compressed body, summarizes the records and checks the metadata against
// them, and rebuilds the replayed tree from a full snapshot and the
// mutations that follow it.
package inspect

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/valyala/fastjson"

	"github.com/hazyhaar/domreplay/record"
)

// Decode inflates a compressed segment body.
func Decode(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("inspect: zlib header: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inspect: inflate: %w", err)
	}
	return raw, nil
}

// Summary describes one segment body.
type Summary struct {
	Metadata record.SegmentMetadata `json:"metadata"`
	Records  int                    `json:"records"`
	ByType   map[string]int         `json:"by_type"`
	BySource map[string]int         `json:"by_source,omitempty"`
	First    int64                  `json:"first_timestamp"`
	Last     int64                  `json:"last_timestamp"`

	// Problems lists disagreements between the metadata and the records.
	Problems []string `json:"problems,omitempty"`
}

// Summarize scans a raw segment body.
func Summarize(raw []byte) (Summary, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(bytes.TrimSpace(raw))
	if err != nil {
		return Summary{}, fmt.Errorf("inspect: parse segment: %w", err)
	}
	recs := v.GetArray("records")
	if recs == nil && v.Get("records") == nil {
		return Summary{}, fmt.Errorf("inspect: parse segment: no records array")
	}

	s := Summary{
		Metadata: metadata(v),
		Records:  len(recs),
		ByType:   map[string]int{},
		BySource: map[string]int{},
	}
	fullSnapshot := false
	for i, r := range recs {
		typ := record.Type(r.GetInt("type"))
		ts := r.GetInt64("timestamp")
		s.ByType[typ.String()]++
		if typ == record.TypeIncrementalSnapshot {
			s.BySource[record.Source(r.GetInt("data", "source")).String()]++
		}
		if typ == record.TypeFullSnapshot {
			fullSnapshot = true
		}
		if i == 0 || ts < s.First {
			s.First = ts
		}
		if i == 0 || ts > s.Last {
			s.Last = ts
		}
	}

	m := s.Metadata
	if m.RecordsCount != s.Records {
		s.Problems = append(s.Problems, fmt.Sprintf("records_count %d, found %d records", m.RecordsCount, s.Records))
	}
	if s.Records > 0 && (m.Start != s.First || m.End != s.Last) {
		s.Problems = append(s.Problems, fmt.Sprintf("time range [%d,%d], records span [%d,%d]", m.Start, m.End, s.First, s.Last))
	}
	if m.HasFullSnapshot != fullSnapshot {
		s.Problems = append(s.Problems, fmt.Sprintf("has_full_snapshot %t, records say %t", m.HasFullSnapshot, fullSnapshot))
	}
	return s, nil
}

func metadata(v *fastjson.Value) record.SegmentMetadata {
	return record.SegmentMetadata{
		SegmentContext: record.SegmentContext{
			Application: record.IDRef{ID: string(v.GetStringBytes("application", "id"))},
			Session:     record.IDRef{ID: string(v.GetStringBytes("session", "id"))},
			View:        record.IDRef{ID: string(v.GetStringBytes("view", "id"))},
		},
		Start:           v.GetInt64("start"),
		End:             v.GetInt64("end"),
		RecordsCount:    v.GetInt("records_count"),
		CreationReason:  record.CreationReason(v.GetStringBytes("creation_reason")),
		HasFullSnapshot: v.GetBool("has_full_snapshot"),
		IndexInView:     v.GetInt("index_in_view"),
		Source:          string(v.GetStringBytes("source")),
	}
}

// Records splits a raw segment body into its record objects.
func Records(raw []byte) ([][]byte, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(bytes.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("inspect: parse segment: %w", err)
	}
	rv := v.Get("records")
	if rv == nil {
		return nil, fmt.Errorf("inspect: records: missing")
	}
	arr, err := rv.Array()
	if err != nil {
		return nil, fmt.Errorf("inspect: records: %w", err)
	}
	out := make([][]byte, len(arr))
	for i, r := range arr {
		out[i] = r.MarshalTo(nil)
	}
	return out, nil
}
