// CLAUDE:SUMMARY Fetches pages over plain HTTP into a dom.Document and detects SPA shells for browser escalation.
// Package fetcher implements the HTTP-only acquisition path: a single GET
// parsed into a dom.Document, with no browser and no script execution.
// Static pages record fine this way; SPA shells need the browser path.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/domreplay/dom"
)

// MaxBodySize caps the bytes read from a response.
const MaxBodySize = 10 << 20

// Result is the outcome of an HTTP fetch.
type Result struct {
	Doc        *dom.Document
	Sufficient bool // the HTML carries enough content to record without a browser
	StatusCode int
	ETag       string
	LastMod    string
	Size       int
}

// Fetcher performs HTTP GETs and parses the responses.
type Fetcher struct {
	client *http.Client
	ua     string
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		ua:     "Mozilla/5.0 (compatible; DOMReplay/1.0)",
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL and parses the body into a document whose href is the
// final URL after redirects.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetcher: %s: status %d", pageURL, resp.StatusCode)
	}

	href := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		href = resp.Request.URL.String()
	}
	doc, err := dom.Parse(bytes.NewReader(body), href)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	res := &Result{
		Doc:        doc,
		Sufficient: IsSufficient(doc, len(body)),
		StatusCode: resp.StatusCode,
		ETag:       resp.Header.Get("ETag"),
		LastMod:    resp.Header.Get("Last-Modified"),
		Size:       len(body),
	}
	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", res.Sufficient)
	return res, nil
}
