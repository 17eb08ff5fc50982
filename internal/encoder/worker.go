package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/adler32"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// WorkerVersion is reported in the initialized response.
const WorkerVersion = "1.0.0"

type workerStream struct {
	buf bytes.Buffer
	zw  *zlib.Writer
	sum hash.Hash32
}

// Worker compresses streams on its own goroutine. Each stream is one zlib
// stream; every write ends with a sync flush so its output can be shipped
// on its own, and the trailer that would close the stream at that point is
// returned alongside.
type Worker struct {
	level int

	mu      sync.Mutex
	mailbox []Request
	closed  bool
	notify  chan struct{}

	out     chan Response
	done    chan struct{}
	streams map[int]*workerStream
}

// NewWorker starts a worker compressing at level (a zlib level).
func NewWorker(level int) *Worker {
	w := &Worker{
		level:   level,
		notify:  make(chan struct{}, 1),
		out:     make(chan Response, 64),
		done:    make(chan struct{}),
		streams: make(map[int]*workerStream),
	}
	go w.loop()
	return w
}

// Post queues req. It never blocks.
func (w *Worker) Post(req Request) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.mailbox = append(w.mailbox, req)
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Responses returns the response channel. It is closed after Close.
func (w *Worker) Responses() <-chan Response { return w.out }

// Close stops the worker once queued requests are handled.
func (w *Worker) Close() error {
	w.mu.Lock()
	already := w.closed
	w.closed = true
	w.mu.Unlock()
	if !already {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
	<-w.done
	return nil
}

func (w *Worker) loop() {
	defer close(w.done)
	defer close(w.out)
	for {
		w.mu.Lock()
		batch := w.mailbox
		w.mailbox = nil
		closed := w.closed
		w.mu.Unlock()

		for _, req := range batch {
			if resp, ok := w.handle(req); ok {
				w.out <- resp
			}
		}
		if closed && len(batch) == 0 {
			return
		}
		if len(batch) == 0 {
			<-w.notify
		}
	}
}

// handle runs one request. Resets produce no response.
func (w *Worker) handle(req Request) (Response, bool) {
	switch req.Action {
	case ActionInit:
		return Response{Type: TypeInitialized, Version: WorkerVersion}, true
	case ActionWrite:
		resp, err := w.write(req)
		if err != nil {
			sid := req.StreamID
			return Response{Type: TypeErrored, StreamID: &sid, Error: err.Error()}, true
		}
		return resp, true
	case ActionReset:
		delete(w.streams, req.StreamID)
		return Response{}, false
	}
	return Response{Type: TypeErrored, Error: fmt.Sprintf("unknown action %q", req.Action)}, true
}

func (w *Worker) write(req Request) (Response, error) {
	s, ok := w.streams[req.StreamID]
	if !ok {
		s = &workerStream{sum: adler32.New()}
		zw, err := zlib.NewWriterLevel(&s.buf, w.level)
		if err != nil {
			return Response{}, fmt.Errorf("encoder: zlib writer: %w", err)
		}
		s.zw = zw
		w.streams[req.StreamID] = s
	}
	data := []byte(req.Data)
	if _, err := s.zw.Write(data); err != nil {
		return Response{}, fmt.Errorf("encoder: write: %w", err)
	}
	if err := s.zw.Flush(); err != nil {
		return Response{}, fmt.Errorf("encoder: flush: %w", err)
	}
	s.sum.Write(data)
	result := bytes.Clone(s.buf.Bytes())
	s.buf.Reset()

	sid := req.StreamID
	return Response{
		Type:                 TypeWrote,
		ID:                   req.ID,
		StreamID:             &sid,
		Result:               result,
		Trailer:              trailer(s.sum.Sum32()),
		AdditionalBytesCount: len(data),
	}, nil
}

// trailer is an empty final deflate block followed by the Adler-32 of
// everything written so far.
func trailer(sum uint32) []byte {
	t := []byte{0x03, 0x00, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(t[2:], sum)
	return t
}
