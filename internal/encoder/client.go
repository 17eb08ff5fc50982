// CLAUDE:SUMMARY Compression worker client: ordered zlib streams with per-write acks and desync detection.
// Package encoder streams segment bytes through a compression worker.
//
// The worker owns the zlib state; the client posts ordered write requests
// and matches acknowledgements against them. Acknowledgements must come
// back in issue order. A stream that sees one out of order is desynchronized
// for good: it stops consuming responses and fails its pending finish.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"
)

// DefaultStartTimeout bounds the worker handshake.
const DefaultStartTimeout = 30 * time.Second

var (
	// ErrWorkerUnavailable is returned by Start when the worker cannot be
	// created or does not complete the handshake.
	ErrWorkerUnavailable = errors.New("encoder: compression worker unavailable")

	// ErrDesynchronized fails every pending finish of a stream that received
	// an acknowledgement out of order.
	ErrDesynchronized = errors.New("encoder: worker responses received out of order")

	// ErrClosed fails pending finishes when the client shuts down.
	ErrClosed = errors.New("encoder: closed")
)

// Options configures Start.
type Options struct {
	StartTimeout time.Duration
	// Level is the zlib compression level of the default worker; 0 selects
	// zlib.DefaultCompression.
	Level int
	// NewTransport creates the worker. Defaults to an in-process Worker.
	NewTransport func() (Transport, error)
	// OnDesync is called once per desynchronized stream.
	OnDesync func()
	Logger   *slog.Logger
}

// Client dispatches worker responses to streams.
type Client struct {
	transport Transport
	opts      Options
	version   string

	mu         sync.Mutex
	streams    map[int]*Stream
	nextStream int

	done chan struct{}
}

// Start creates the worker and waits for its initialized response.
func Start(ctx context.Context, opts Options) (*Client, error) {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	if opts.Level == 0 {
		opts.Level = zlib.DefaultCompression
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewTransport == nil {
		level := opts.Level
		opts.NewTransport = func() (Transport, error) { return NewWorker(level), nil }
	}

	tr, err := opts.NewTransport()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)
	}
	fail := func(reason string) (*Client, error) {
		go tr.Close()
		opts.Logger.Error("encoder: worker start failed", "reason", reason)
		return nil, fmt.Errorf("%w: %s", ErrWorkerUnavailable, reason)
	}

	tr.Post(Request{Action: ActionInit})
	timer := time.NewTimer(opts.StartTimeout)
	defer timer.Stop()

	var version string
	select {
	case resp, ok := <-tr.Responses():
		if !ok {
			return fail("worker exited")
		}
		switch resp.Type {
		case TypeInitialized:
			version = resp.Version
		case TypeErrored:
			return fail(resp.Error)
		default:
			return fail("unexpected response " + resp.Type)
		}
	case <-timer.C:
		return fail("timeout")
	case <-ctx.Done():
		return fail(ctx.Err().Error())
	}

	c := &Client{
		transport: tr,
		opts:      opts,
		version:   version,
		streams:   make(map[int]*Stream),
		done:      make(chan struct{}),
	}
	go c.dispatch()
	opts.Logger.Debug("encoder: worker initialized", "version", version)
	return c, nil
}

// Version returns the version reported by the worker.
func (c *Client) Version() string { return c.version }

// NewStream opens an independent compressed stream.
func (c *Client) NewStream() *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := &Stream{c: c, id: c.nextStream}
	c.nextStream++
	c.streams[s.id] = s
	return s
}

func (c *Client) dispatch() {
	defer close(c.done)
	for resp := range c.transport.Responses() {
		if resp.StreamID == nil {
			c.opts.Logger.Error("encoder: worker error", "error", resp.Error)
			continue
		}
		c.mu.Lock()
		s := c.streams[*resp.StreamID]
		c.mu.Unlock()
		if s != nil {
			s.handle(resp)
		}
	}
}

func (c *Client) forget(s *Stream) {
	c.mu.Lock()
	delete(c.streams, s.id)
	c.mu.Unlock()
}

func (c *Client) desynchronized(s *Stream) {
	c.forget(s)
	c.transport.Post(Request{Action: ActionReset, StreamID: s.id})
	c.opts.Logger.Warn("encoder: worker responses received out of order", "stream", s.id)
	if c.opts.OnDesync != nil {
		c.opts.OnDesync()
	}
}

// Close stops the worker after queued requests and fails what is still
// pending.
func (c *Client) Close() error {
	err := c.transport.Close()
	<-c.done
	c.mu.Lock()
	streams := make([]*Stream, 0, len(c.streams))
	for _, s := range c.streams {
		streams = append(streams, s)
	}
	clear(c.streams)
	c.mu.Unlock()
	for _, s := range streams {
		s.fail(ErrClosed)
	}
	return err
}
