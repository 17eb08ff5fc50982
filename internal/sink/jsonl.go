package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/record"
)

// JSONLines writes one JSON object per payload: the event metadata and the
// compressed segment (base64).
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

type line struct {
	Type     string               `json:"type"`
	Exit     bool                 `json:"exit,omitempty"`
	Filename string               `json:"filename"`
	Event    record.EventMetadata `json:"event"`
	Segment  []byte               `json:"segment"`
}

// NewJSONLines returns a sink writing to w, or stdout when w is nil. If w
// is an io.Closer it is closed with the sink, stdout excepted.
func NewJSONLines(w io.Writer) *JSONLines {
	if w == nil {
		w = os.Stdout
	}
	j := &JSONLines{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok && w != os.Stdout {
		j.c = c
	}
	return j
}

func (j *JSONLines) Send(_ context.Context, p payload.Payload) error {
	return j.write(p, false)
}

func (j *JSONLines) SendOnExit(_ context.Context, p payload.Payload) error {
	return j.write(p, true)
}

func (j *JSONLines) write(p payload.Payload, exit bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(line{Type: "segment", Exit: exit, Filename: p.Filename, Event: p.Metadata, Segment: p.Segment})
}

func (j *JSONLines) Close() error {
	if j.c != nil {
		return j.c.Close()
	}
	return nil
}
