package domreplay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/browser"
	"github.com/hazyhaar/domreplay/internal/cdp"
	"github.com/hazyhaar/domreplay/internal/config"
	"github.com/hazyhaar/domreplay/internal/fetcher"
	"github.com/hazyhaar/domreplay/internal/idgen"
	"github.com/hazyhaar/domreplay/internal/metrics"
	"github.com/hazyhaar/domreplay/internal/payload"
)

// stopTimeout bounds the drain of a recorder once its page is done.
const stopTimeout = 15 * time.Second

// Session is the top-level orchestrator. It records the configured pages,
// one recorder and replay session per page, over Chrome tabs or plain HTTP
// fetches.
type Session struct {
	cfg     *config.Config
	mgr     *browser.Manager
	fetch   *fetcher.Fetcher
	client  *http.Client
	sink    payload.Sink
	metrics *metrics.Metrics
	tracer  trace.Tracer
	ids     idgen.Generator
	logger  *slog.Logger

	browserOnce sync.Once
	browserErr  error

	mu        sync.Mutex
	recorders map[string]*Recorder // keyed by page ID
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMetrics records into m.
func WithMetrics(m *metrics.Metrics) SessionOption { return func(s *Session) { s.metrics = m } }

// WithTracer traces payload deliveries with t.
func WithTracer(t trace.Tracer) SessionOption { return func(s *Session) { s.tracer = t } }

// WithIDGenerator sets the generator of session and view ids.
func WithIDGenerator(g idgen.Generator) SessionOption { return func(s *Session) { s.ids = g } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SessionOption { return func(s *Session) { s.logger = l } }

// WithHTTPClient sets the client of the HTTP acquisition path.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) { s.client = c }
}

// NewSession creates a Session from configuration. Payloads go to sink.
func NewSession(cfg *Config, sink payload.Sink, opts ...SessionOption) *Session {
	s := &Session{
		cfg:       cfg,
		sink:      sink,
		ids:       idgen.UUIDv4(),
		logger:    slog.Default(),
		recorders: make(map[string]*Recorder),
	}
	for _, o := range opts {
		o(s)
	}
	fopts := []fetcher.Option{fetcher.WithLogger(s.logger)}
	if s.client != nil {
		fopts = append(fopts, fetcher.WithClient(s.client))
	}
	s.fetch = fetcher.New(fopts...)
	headless := cfg.Browser.Headless == nil || *cfg.Browser.Headless
	s.mgr = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headless:         headless,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           s.logger,
	})
	return s
}

// Run records every configured page and returns when all are done. A page
// that fails is logged; the others keep recording.
func (s *Session) Run(ctx context.Context) error {
	defer s.mgr.Close()
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range s.cfg.Pages {
		g.Go(func() error {
			if err := s.RecordPage(ctx, p); err != nil {
				s.logger.Error("domreplay: page failed", "page", p.ID, "url", p.URL, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close shuts the browser down.
func (s *Session) Close() error {
	return s.mgr.Close()
}

// Status reports the recorder state of every page.
func (s *Session) Status() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.recorders))
	for id, r := range s.recorders {
		out[id] = r.Status().String()
	}
	return out
}

// RecordPage records one page until its duration elapses or ctx ends.
func (s *Session) RecordPage(ctx context.Context, p PageConfig) error {
	mode := p.Mode
	var fetched *fetcher.Result
	if mode == "auto" || mode == "http" {
		res, err := s.fetch.Fetch(ctx, p.URL)
		switch {
		case err != nil && mode == "http":
			return fmt.Errorf("domreplay: fetch: %w", err)
		case err != nil:
			s.logger.Warn("domreplay: auto-detect fetch failed, escalating to browser", "url", p.URL, "error", err)
			mode = "browser"
		case mode == "auto" && !res.Sufficient:
			s.logger.Info("domreplay: content insufficient via HTTP, escalating to browser", "url", p.URL)
			mode = "browser"
		default:
			mode, fetched = "http", res
		}
	}
	if mode == "http" {
		return s.recordHTTP(ctx, p, fetched.Doc)
	}
	return s.recordBrowser(ctx, p)
}

func (s *Session) newRecorder(p PageConfig, doc *dom.Document, sessionID string) (*Recorder, error) {
	rec, err := New(doc, Options{
		SessionID: sessionID,
		Sink:      s.sink,
		Recorder:  s.cfg.Recorder,
		Privacy:   s.cfg.Privacy,
		Metrics:   s.metrics,
		Tracer:    s.tracer,
		Logger:    s.logger.With("page", p.ID),
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.recorders[p.ID] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *Session) stop(ctx context.Context, rec *Recorder) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := rec.Stop(ctx); err != nil {
		s.logger.Warn("domreplay: stop", "error", err)
	}
}

// endView closes the current view of a page that keeps its recorder until
// stop; a failure is only logged.
func (s *Session) endView(rec *Recorder) {
	if err := rec.EndView(); err != nil {
		s.logger.Warn("domreplay: end view", "error", err)
	}
}

// wait blocks for d or until ctx ends.
func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// recordHTTP records a fetched document: one view, a full snapshot, then
// whatever the host changes until the page duration elapses.
func (s *Session) recordHTTP(ctx context.Context, p PageConfig, doc *dom.Document) error {
	rec, err := s.newRecorder(p, doc, s.ids())
	if err != nil {
		return err
	}
	if err := rec.Start(ctx); err != nil {
		return err
	}
	defer s.stop(ctx, rec)
	if err := rec.StartView(View{ID: s.ids()}); err != nil {
		return err
	}
	s.logger.Info("domreplay: recording page", "url", p.URL, "id", p.ID, "mode", "http")
	if p.Duration > 0 {
		wait(ctx, p.Duration)
	}
	return rec.EndView()
}

// recordBrowser mirrors a Chrome tab. Every document load is a new view of
// the same replay session; the mirror is rebuilt after navigation.
func (s *Session) recordBrowser(ctx context.Context, p PageConfig) error {
	s.browserOnce.Do(func() { _, s.browserErr = s.mgr.Start(ctx) })
	if s.browserErr != nil {
		return fmt.Errorf("domreplay: start browser: %w", s.browserErr)
	}
	tab, err := s.mgr.OpenTab(ctx, p.URL, p.ID)
	if err != nil {
		return err
	}
	defer tab.Close()

	var deadline <-chan time.Time
	if p.Duration > 0 {
		t := time.NewTimer(p.Duration)
		defer t.Stop()
		deadline = t.C
	}

	sessionID := s.ids()
	s.logger.Info("domreplay: recording page", "url", p.URL, "id", p.ID, "mode", "browser", "session", sessionID)
	for {
		mirror, err := cdp.Attach(ctx, tab.Page, s.logger)
		if err != nil {
			return err
		}
		rec, err := s.newRecorder(p, mirror.Document(), sessionID)
		if err != nil {
			mirror.Close()
			return err
		}
		if err := rec.Start(ctx); err != nil {
			mirror.Close()
			return err
		}
		if err := rec.StartView(View{ID: s.ids()}); err != nil {
			s.stop(ctx, rec)
			mirror.Close()
			return err
		}

		navigated := false
		select {
		case <-ctx.Done():
		case <-deadline:
		case <-mirror.Updated():
			navigated = true
			if err := rec.PageExit(ReasonPageHide); err != nil {
				s.logger.Warn("domreplay: page exit", "error", err)
			}
		}
		if !navigated {
			s.endView(rec)
		}
		s.stop(ctx, rec)
		mirror.Close()
		if !navigated || ctx.Err() != nil {
			return nil
		}
		s.logger.Info("domreplay: page navigated, re-attaching", "id", p.ID)
	}
}
