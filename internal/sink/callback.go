package sink

import (
	"context"

	"github.com/hazyhaar/domreplay/internal/payload"
)

// Func receives a payload in-process. exit is true on the page-exit path.
type Func func(ctx context.Context, p payload.Payload, exit bool) error

// Callback hands payloads to a Go function, for embedding the recorder in
// a process that consumes segments directly.
type Callback struct {
	fn Func
}

// NewCallback returns a Callback sink. A nil fn discards payloads.
func NewCallback(fn Func) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, p payload.Payload) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, p, false)
}

func (c *Callback) SendOnExit(ctx context.Context, p payload.Payload) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, p, true)
}

func (c *Callback) Close() error { return nil }
