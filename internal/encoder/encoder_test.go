package encoder

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inflate(t *testing.T, b []byte) string {
	t.Helper()
	r, err := zlib.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err, "stream must be complete and checksummed")
	return string(out)
}

func startDefault(t *testing.T) *Client {
	t.Helper()
	c, err := Start(context.Background(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStream_RoundTrip(t *testing.T) {
	c := startDefault(t)
	assert.Equal(t, WorkerVersion, c.Version())
	s := c.NewStream()

	var mu sync.Mutex
	var encoded int
	cb := func(n int) {
		mu.Lock()
		encoded += n
		mu.Unlock()
	}
	s.Write(`{"records":[`, cb)
	s.Write(`{"type":4}`, cb)
	s.Write(`]}`, cb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := s.FinishWait(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"records":[{"type":4}]}`, inflate(t, res.Output))
	assert.Equal(t, len(`{"records":[{"type":4}]}`), res.RawBytesCount)
	assert.Equal(t, len(res.Output), res.OutputBytesCount)
}

func TestStream_SuccessiveUnitsAreIndependent(t *testing.T) {
	c := startDefault(t)
	s := c.NewStream()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Write("first unit", nil)
	done := make(chan Result, 1)
	s.Finish(func(r Result, err error) {
		assert.NoError(t, err)
		done <- r
	})
	// Issued after Finish: belongs to the next unit.
	s.Write("second", nil)

	first := <-done
	second, err := s.FinishWait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first unit", inflate(t, first.Output))
	assert.Equal(t, "second", inflate(t, second.Output))
}

func TestStream_FinishWithoutWrites(t *testing.T) {
	c := startDefault(t)
	res, err := c.NewStream().FinishWait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Output)
}

type fakeTransport struct {
	mu     sync.Mutex
	reqs   []Request
	out    chan Response
	silent bool
}

func newFake(silent bool) *fakeTransport {
	return &fakeTransport{out: make(chan Response, 16), silent: silent}
}

func (f *fakeTransport) Post(r Request) {
	f.mu.Lock()
	f.reqs = append(f.reqs, r)
	f.mu.Unlock()
	if r.Action == ActionInit && !f.silent {
		f.out <- Response{Type: TypeInitialized, Version: "fake"}
	}
}

func (f *fakeTransport) requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.reqs...)
}

func (f *fakeTransport) Responses() <-chan Response { return f.out }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out != nil {
		close(f.out)
		f.out = nil
	}
	return nil
}

func (f *fakeTransport) ack(stream, id int) {
	f.out <- Response{Type: TypeWrote, ID: id, StreamID: &stream, Result: []byte{1}, AdditionalBytesCount: 1}
}

func TestStream_OutOfOrderAckDesynchronizes(t *testing.T) {
	fake := newFake(false)
	desyncs := make(chan struct{}, 4)
	c, err := Start(context.Background(), Options{
		NewTransport: func() (Transport, error) { return fake, nil },
		OnDesync:     func() { desyncs <- struct{}{} },
	})
	require.NoError(t, err)
	s := c.NewStream()

	var acked []int
	s.Write("a", func(n int) { acked = append(acked, n) })
	s.Write("b", func(n int) { acked = append(acked, n) })
	finished := make(chan error, 1)
	s.Finish(func(_ Result, err error) { finished <- err })

	fake.ack(0, 1)
	fake.ack(0, 0)

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, ErrDesynchronized)
	case <-time.After(5 * time.Second):
		t.Fatal("finish callback not called")
	}
	<-desyncs
	assert.ErrorIs(t, s.Err(), ErrDesynchronized)
	assert.Empty(t, acked)
	assert.Contains(t, fake.requests(), Request{Action: ActionReset, StreamID: 0},
		"the worker releases the desynchronized stream")

	// A fresh stream keeps working on the same client.
	fresh := c.NewStream()
	fresh.Write("c", nil)
	fake.ack(1, 0)
	res, err := fresh.FinishWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.RawBytesCount)
	assert.Len(t, desyncs, 0)
	require.NoError(t, c.Close())
}

func TestStart_WorkerUnavailable(t *testing.T) {
	_, err := Start(context.Background(), Options{
		StartTimeout: 20 * time.Millisecond,
		NewTransport: func() (Transport, error) { return newFake(true), nil },
	})
	assert.ErrorIs(t, err, ErrWorkerUnavailable)

	_, err = Start(context.Background(), Options{
		NewTransport: func() (Transport, error) { return nil, io.ErrClosedPipe },
	})
	assert.ErrorIs(t, err, ErrWorkerUnavailable)
}

func TestTrailer(t *testing.T) {
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x01}, trailer(1))
}
