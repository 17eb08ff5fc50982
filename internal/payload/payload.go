// CLAUDE:SUMMARY Assembles finished segments into multipart uploads and hands them to the sink.
// Package payload turns a flushed segment into the multipart upload body
// and hands it to the delivery sink.
package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/record"
)

// Payload is one segment upload.
type Payload struct {
	// Body is the multipart/form-data body; ContentType carries its
	// boundary.
	Body        []byte
	ContentType string

	Filename string
	Metadata record.EventMetadata
	Segment  []byte
	Reason   record.FlushReason
}

// Sink is the reliable-delivery transport. SendOnExit is the path safe to
// use while the page is going away.
type Sink interface {
	Send(ctx context.Context, p Payload) error
	SendOnExit(ctx context.Context, p Payload) error
}

// Filename is the name of the segment part: <sessionId>-<start>.
func Filename(meta record.SegmentMetadata) string {
	return fmt.Sprintf("%s-%d", meta.Session.ID, meta.Start)
}

// Build assembles the upload of a finished segment.
func Build(res encoder.Result, meta record.SegmentMetadata, reason record.FlushReason) (Payload, error) {
	ev := record.EventMetadata{
		SegmentMetadata:       meta,
		RawSegmentSize:        res.RawBytesCount,
		CompressedSegmentSize: res.OutputBytesCount,
	}
	evJSON, err := json.Marshal(ev)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: marshal metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	filename := Filename(meta)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="segment"; filename="%s"`, filename))
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: segment part: %w", err)
	}
	if _, err := part.Write(res.Output); err != nil {
		return Payload{}, fmt.Errorf("payload: segment part: %w", err)
	}

	h = textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="event"; filename="blob"`)
	h.Set("Content-Type", "application/json")
	part, err = mw.CreatePart(h)
	if err != nil {
		return Payload{}, fmt.Errorf("payload: event part: %w", err)
	}
	if _, err := part.Write(evJSON); err != nil {
		return Payload{}, fmt.Errorf("payload: event part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Payload{}, fmt.Errorf("payload: close: %w", err)
	}

	return Payload{
		Body:        body.Bytes(),
		ContentType: mw.FormDataContentType(),
		Filename:    filename,
		Metadata:    ev,
		Segment:     res.Output,
		Reason:      reason,
	}, nil
}
