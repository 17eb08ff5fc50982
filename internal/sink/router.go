package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domreplay/internal/payload"
)

// Router fans payloads out to every sink. A failing sink does not stop the
// others; failures are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter returns a router over sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, p payload.Payload) error {
	return r.each(func(s Sink) error { return s.Send(ctx, p) }, "sink: send failed")
}

func (r *Router) SendOnExit(ctx context.Context, p payload.Payload) error {
	return r.each(func(s Sink) error { return s.SendOnExit(ctx, p) }, "sink: exit send failed")
}

func (r *Router) each(fn func(Sink) error, msg string) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := fn(s); err != nil {
			r.logger.Warn(msg, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
