package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/domreplay/internal/payload"
)

// HTTP POSTs the multipart payload to an intake URL. Send retries with
// exponential backoff; SendOnExit makes one short attempt.
type HTTP struct {
	url         string
	client      *http.Client
	maxRetries  int
	backoff     time.Duration
	exitTimeout time.Duration
	logger      *slog.Logger
}

// HTTPOption configures an HTTP sink.
type HTTPOption func(*HTTP)

// WithRetries sets the maximum number of retries of Send. Default: 3.
func WithRetries(n int) HTTPOption { return func(h *HTTP) { h.maxRetries = n } }

// WithBackoff sets the first retry delay, doubled on every attempt.
// Default: 1s.
func WithBackoff(d time.Duration) HTTPOption { return func(h *HTTP) { h.backoff = d } }

// WithExitTimeout bounds the single SendOnExit attempt. Default: 2s.
func WithExitTimeout(d time.Duration) HTTPOption { return func(h *HTTP) { h.exitTimeout = d } }

// WithHTTPClient sets the client.
func WithHTTPClient(c *http.Client) HTTPOption { return func(h *HTTP) { h.client = c } }

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption { return func(h *HTTP) { h.logger = l } }

// NewHTTP returns an HTTP sink posting to url.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		url:         url,
		client:      &http.Client{Timeout: 10 * time.Second},
		maxRetries:  3,
		backoff:     time.Second,
		exitTimeout: 2 * time.Second,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *HTTP) Send(ctx context.Context, p payload.Payload) error {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			wait := h.backoff << uint(attempt-1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := h.post(ctx, p)
		if err == nil {
			return nil
		}
		lastErr = err
		h.logger.Warn("sink: http attempt failed", "attempt", attempt+1, "file", p.Filename, "error", err)
	}
	return fmt.Errorf("sink: http: all retries exhausted: %w", lastErr)
}

func (h *HTTP) SendOnExit(ctx context.Context, p payload.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, h.exitTimeout)
	defer cancel()
	if err := h.post(ctx, p); err != nil {
		return fmt.Errorf("sink: http: exit send: %w", err)
	}
	return nil
}

func (h *HTTP) post(ctx context.Context, p payload.Payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(p.Body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", p.ContentType)
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTP) Close() error { return nil }
