package encoder

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// Result is the compressed output of one finished unit of a stream.
type Result struct {
	Output           []byte
	OutputBytesCount int
	RawBytesCount    int
}

type pendingWrite struct {
	id int
	cb func(additionalEncodedBytes int)
}

type finisher struct {
	afterID int
	cb      func(Result, error)
}

// Stream is one compressed stream. After Finish the stream starts a fresh
// zlib stream for subsequent writes.
type Stream struct {
	c  *Client
	id int

	mu        sync.Mutex
	nextWrite int
	pending   []pendingWrite
	finishers []finisher
	dirty     bool
	err       error

	chunks   [][]byte
	rawBytes int
	trailer  []byte
}

// Write queues data. cb, if not nil, receives the number of compressed
// bytes the write produced once the worker acknowledges it. Writes on a
// failed stream are dropped.
func (s *Stream) Write(data string, cb func(additionalEncodedBytes int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	id := s.nextWrite
	s.nextWrite++
	s.pending = append(s.pending, pendingWrite{id: id, cb: cb})
	s.dirty = true
	s.c.transport.Post(Request{Action: ActionWrite, ID: id, Data: data, StreamID: s.id})
}

// Finish closes the current unit. cb runs once every write issued before
// Finish is acknowledged; their write callbacks are dropped.
func (s *Stream) Finish(cb func(Result, error)) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		cb(Result{}, err)
		return
	}
	for i := range s.pending {
		s.pending[i].cb = nil
	}
	if s.dirty {
		s.c.transport.Post(Request{Action: ActionReset, StreamID: s.id})
		s.dirty = false
	}
	if len(s.pending) == 0 {
		res := s.consume()
		s.mu.Unlock()
		cb(res, nil)
		return
	}
	s.finishers = append(s.finishers, finisher{afterID: s.pending[len(s.pending)-1].id, cb: cb})
	s.mu.Unlock()
}

// FinishWait is Finish for callers that can block.
func (s *Stream) FinishWait(ctx context.Context) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	s.Finish(func(r Result, err error) { ch <- outcome{r, err} })
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Err returns the error that failed the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending returns the number of unacknowledged writes.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close detaches the stream from the client.
func (s *Stream) Close() {
	s.c.forget(s)
	s.fail(ErrClosed)
}

func (s *Stream) consume() Result {
	var out bytes.Buffer
	for _, c := range s.chunks {
		out.Write(c)
	}
	if len(s.chunks) > 0 {
		out.Write(s.trailer)
	}
	res := Result{Output: out.Bytes(), OutputBytesCount: out.Len(), RawBytesCount: s.rawBytes}
	s.chunks, s.rawBytes, s.trailer = nil, 0, nil
	return res
}

func (s *Stream) handle(resp Response) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	switch resp.Type {
	case TypeWrote:
		if len(s.pending) == 0 || s.pending[0].id != resp.ID {
			fins := s.setErr(ErrDesynchronized)
			s.mu.Unlock()
			s.c.desynchronized(s)
			notify(fins, ErrDesynchronized)
			return
		}
		w := s.pending[0]
		s.pending = s.pending[1:]
		s.chunks = append(s.chunks, resp.Result)
		s.rawBytes += resp.AdditionalBytesCount
		s.trailer = resp.Trailer

		var done *finisher
		var res Result
		if len(s.finishers) > 0 && s.finishers[0].afterID == resp.ID {
			f := s.finishers[0]
			s.finishers = s.finishers[1:]
			res = s.consume()
			done = &f
		}
		s.mu.Unlock()
		if w.cb != nil {
			w.cb(len(resp.Result))
		}
		if done != nil {
			done.cb(res, nil)
		}
	case TypeErrored:
		err := fmt.Errorf("encoder: worker: %s", resp.Error)
		fins := s.setErr(err)
		s.mu.Unlock()
		s.c.forget(s)
		s.c.opts.Logger.Error("encoder: stream failed", "stream", s.id, "error", resp.Error)
		notify(fins, err)
	default:
		s.mu.Unlock()
	}
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	fins := s.setErr(err)
	s.mu.Unlock()
	notify(fins, err)
}

// setErr marks the stream failed and returns the finishers to notify.
// Callers hold s.mu.
func (s *Stream) setErr(err error) []finisher {
	s.err = err
	fins := s.finishers
	s.finishers = nil
	s.pending = nil
	s.chunks = nil
	return fins
}

func notify(fins []finisher, err error) {
	for _, f := range fins {
		f.cb(Result{}, err)
	}
}
