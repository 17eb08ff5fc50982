package domreplay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/config"
	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/internal/metrics"
	"github.com/hazyhaar/domreplay/internal/mutation"
	"github.com/hazyhaar/domreplay/internal/nodeid"
	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/internal/privacy"
	"github.com/hazyhaar/domreplay/internal/schedule"
	"github.com/hazyhaar/domreplay/internal/segment"
	"github.com/hazyhaar/domreplay/internal/serialize"
	"github.com/hazyhaar/domreplay/internal/shadow"
	"github.com/hazyhaar/domreplay/internal/tracker"
	"github.com/hazyhaar/domreplay/record"
)

// Options configures a Recorder. Zero limits take the defaults of each
// component.
type Options struct {
	SessionID string
	Sink      payload.Sink

	Recorder config.RecorderConfig
	Privacy  config.PrivacyConfig

	// ActionNameAttribute is an extra attribute exempt from masking.
	ActionNameAttribute string

	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// Timers defaults to wall-clock timers running in the document turn.
	Timers schedule.Timers
	// NewTransport overrides the in-process compression worker.
	NewTransport func() (encoder.Transport, error)

	Logger *slog.Logger
}

// Recorder captures one document.
type Recorder struct {
	doc    *dom.Document
	opts   Options
	logger *slog.Logger
	status atomic.Int32

	registry  *nodeid.Registry
	resolver  *privacy.Resolver
	scroll    *serialize.ScrollMap
	timers    schedule.Timers
	recordIDs *tracker.RecordIDs

	lifecycle sync.Mutex
	client    *encoder.Client
	segments  *segment.Collection
	assembler *payload.Assembler

	// Owned by the document turn.
	shadows     *shadow.Controller
	mutations   *mutation.Tracker
	trackers    []tracker.Tracker
	viewEnd     *tracker.ViewEnd
	frustration *tracker.Frustration
	lifecycles  []func()
	snapshots   int

	viewMu sync.Mutex
	view   *View
}

// New returns a recorder for doc. Nothing is observed until Start.
func New(doc *dom.Document, opts Options) (*Recorder, error) {
	if doc == nil {
		return nil, fmt.Errorf("domreplay: new: nil document")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("domreplay: new: nil sink")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder.ApplicationID == "" {
		opts.Recorder.ApplicationID = config.Default().Recorder.ApplicationID
	}
	def := opts.Privacy.DefaultLevel
	if def == "" {
		def = privacy.Mask
	}
	resolver, err := privacy.NewResolver(def, opts.Privacy.Rules, opts.Privacy.Ignore)
	if err != nil {
		return nil, fmt.Errorf("domreplay: new: %w", err)
	}
	timers := opts.Timers
	if timers == nil {
		timers = schedule.NewReal(doc.Run, nil)
	}
	return &Recorder{
		doc:       doc,
		opts:      opts,
		logger:    opts.Logger.With("session", opts.SessionID),
		registry:  nodeid.New(),
		resolver:  resolver,
		scroll:    serialize.NewScrollMap(),
		timers:    timers,
		recordIDs: tracker.NewRecordIDs(),
	}, nil
}

// Status returns the lifecycle state.
func (r *Recorder) Status() Status { return Status(r.status.Load()) }

// Start launches the compression worker and the observers. When the worker
// cannot start the recorder stays not-started and the error wraps
// ErrWorkerUnavailable.
func (r *Recorder) Start(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	switch r.Status() {
	case StatusRecording:
		return nil
	case StatusStopped:
		return ErrStopped
	}

	rc := r.opts.Recorder
	m := r.opts.Metrics
	client, err := encoder.Start(ctx, encoder.Options{
		StartTimeout: rc.WorkerStartTimeout,
		Level:        rc.CompressionLevel,
		NewTransport: r.opts.NewTransport,
		OnDesync:     m.IncrementDesyncs,
		Logger:       r.logger,
	})
	if err != nil {
		r.logger.Error("domreplay: recorder not started", "error", err)
		return fmt.Errorf("domreplay: start: %w", err)
	}

	aopts := []payload.Option{
		payload.WithLogger(r.logger),
		payload.WithReport(func(p payload.Payload, err error) {
			m.ObserveDelivery(p.Reason.IsPageExit(), err)
		}),
	}
	if r.opts.Tracer != nil {
		aopts = append(aopts, payload.WithTracer(r.opts.Tracer))
	}
	assembler := payload.NewAssembler(r.opts.Sink, aopts...)

	deliverCtx := context.WithoutCancel(ctx)
	segments, err := segment.New(segment.Config{
		NewStream: func() segment.Stream { return client.NewStream() },
		Context:   r.segmentContext,
		Timers:    r.timers,
		Deliver: func(f segment.Flushed) {
			m.ObserveSegment(f.Reason, f.Result.RawBytesCount, f.Result.OutputBytesCount)
			assembler.Deliver(deliverCtx, f.Result, f.Metadata, f.Reason)
		},
		DurationLimit: rc.SegmentDurationLimit,
		BytesLimit:    int(rc.SegmentBytesLimit),
		OnLost: func(reason record.FlushReason, _ error) {
			m.ObserveLost(reason)
		},
		Logger: r.logger,
	})
	if err != nil {
		client.Close()
		return fmt.Errorf("domreplay: start: %w", err)
	}

	r.client, r.segments, r.assembler = client, segments, assembler
	r.doc.Run(r.observe)
	r.status.Store(int32(StatusRecording))
	r.logger.Info("domreplay: recording", "worker", client.Version())
	return nil
}

func (r *Recorder) trackerConfig() tracker.Config {
	rc := r.opts.Recorder
	return tracker.Config{
		Doc:              r.doc,
		Registry:         r.registry,
		Resolver:         r.resolver,
		Scroll:           r.scroll,
		Timers:           r.timers,
		Emit:             r.emit,
		RecordIDs:        r.recordIDs,
		MoveThrottle:     rc.MoveThrottle,
		ScrollThrottle:   rc.ScrollThrottle,
		ViewportThrottle: rc.ViewportThrottle,
		Logger:           r.logger,
	}
}

func (r *Recorder) mutationConfig() mutation.Config {
	rc := r.opts.Recorder
	return mutation.Config{
		Registry:            r.registry,
		Resolver:            r.resolver,
		Shadow:              r.shadows,
		Timers:              r.timers,
		Emit:                r.emit,
		ActionNameAttribute: r.opts.ActionNameAttribute,
		MaxDelay:            rc.MutationMaxDelay,
		MinSpacing:          rc.MutationMinSpacing,
		OnDrop:              r.opts.Metrics.AddDroppedMutations,
		Logger:              r.logger,
	}
}

// observe starts every observer. It runs inside the document turn.
func (r *Recorder) observe() {
	tc := r.trackerConfig()
	root := r.doc.Node()

	r.shadows = shadow.New(nil, r.logger)
	mc := r.mutationConfig()
	r.shadows.SetFactory(func(sr *dom.Node) shadow.Observer {
		return &shadowObservers{
			mutations: mutation.Start(sr, mc),
			trackers:  []tracker.Tracker{tracker.TrackInput(tc, sr), tracker.TrackScroll(tc, sr)},
		}
	})
	r.mutations = mutation.Start(root, mc)

	r.trackers = []tracker.Tracker{
		tracker.TrackMove(tc),
		tracker.TrackInteraction(tc),
		tracker.TrackScroll(tc, root),
		tracker.TrackViewport(tc),
		tracker.TrackVisualViewport(tc),
		tracker.TrackInput(tc, root),
		tracker.TrackMedia(tc),
		tracker.TrackStyleSheet(tc),
		tracker.TrackFocus(tc),
	}
	r.viewEnd = tracker.TrackViewEnd(tc, r.flushMutations)
	r.frustration = tracker.TrackFrustration(tc)

	r.lifecycles = []func(){
		r.doc.AddEventListener(nil, dom.EventBeforeUnload, func(*dom.Event) { r.pageExit(ReasonBeforeUnload) }),
		r.doc.AddEventListener(nil, dom.EventPageHide, func(*dom.Event) { r.pageExit(ReasonPageHide) }),
		r.doc.AddEventListener(nil, dom.EventFreeze, func(*dom.Event) { r.pageExit(ReasonPageFrozen) }),
		r.doc.AddEventListener(nil, dom.EventVisibilityChange, func(evt *dom.Event) {
			if evt.Hidden {
				r.pageExit(ReasonVisibilityHidden)
			}
		}),
	}
}

// shadowObservers groups what runs inside one shadow root.
type shadowObservers struct {
	mutations *mutation.Tracker
	trackers  []tracker.Tracker
}

func (s *shadowObservers) Flush() { s.mutations.Flush() }

func (s *shadowObservers) Stop() {
	s.mutations.Stop()
	for _, t := range s.trackers {
		t.Stop()
	}
}

// flushMutations drains the document and shadow-root trackers. It runs
// inside the document turn.
func (r *Recorder) flushMutations() {
	r.mutations.Flush()
	r.shadows.Flush()
}

func (r *Recorder) emit(rec record.Record) {
	if err := r.segments.AddRecord(rec); err != nil {
		r.logger.Warn("domreplay: record dropped", "type", rec.Type, "error", err)
		return
	}
	r.opts.Metrics.ObserveRecord(rec)
}

func (r *Recorder) segmentContext() (record.SegmentContext, bool) {
	r.viewMu.Lock()
	defer r.viewMu.Unlock()
	if r.view == nil {
		return record.SegmentContext{}, false
	}
	return record.SegmentContext{
		Application: record.IDRef{ID: r.opts.Recorder.ApplicationID},
		Session:     record.IDRef{ID: r.opts.SessionID},
		View:        record.IDRef{ID: r.view.ID},
	}, true
}

func (r *Recorder) active() error {
	switch r.Status() {
	case StatusNotStarted:
		return ErrNotStarted
	case StatusStopped:
		return ErrStopped
	}
	return nil
}

// StartView closes the segment of the previous view and records a full
// snapshot attributed to v.
func (r *Recorder) StartView(v View) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if err := r.active(); err != nil {
		return err
	}
	// Pending mutations belong to the view being left.
	r.doc.Run(r.flushMutations)
	r.segments.Flush(record.ReasonViewChange)
	r.viewMu.Lock()
	r.view = &v
	r.viewMu.Unlock()
	r.doc.Run(r.takeFullSnapshot)
	r.logger.Debug("domreplay: view started", "view", v.ID)
	return nil
}

// takeFullSnapshot emits Meta, Focus, FullSnapshot and, when the document
// has one, VisualViewport. It runs inside the document turn.
func (r *Recorder) takeFullSnapshot() {
	r.flushMutations()

	ts := r.timers.Now().UnixMilli()
	vp := r.doc.Viewport()
	r.emit(record.Meta(ts, r.doc.Href(), vp.Width, vp.Height))
	r.emit(record.Focus(ts, r.doc.HasFocus()))

	kind := serialize.InitialFullSnapshot
	if r.snapshots > 0 {
		kind = serialize.SubsequentFullSnapshot
	}
	r.snapshots++
	sctx := &serialize.Context{
		Kind:                kind,
		Registry:            r.registry,
		Resolver:            r.resolver,
		Scroll:              r.scroll,
		Shadow:              r.shadows,
		ActionNameAttribute: r.opts.ActionNameAttribute,
		Logger:              r.logger,
	}
	node := sctx.Document(r.doc)
	if node == nil {
		r.logger.Warn("domreplay: document not serializable")
		return
	}
	left, top := r.doc.WindowScroll()
	r.emit(record.FullSnapshot(ts, node, record.Offset{Left: left, Top: top}))

	if data, ok := tracker.VisualViewportData(r.doc); ok {
		r.emit(record.VisualViewport(ts, data))
	}
}

// EndView emits ViewEnd after pending mutations. Records arriving until the
// next StartView are dropped.
func (r *Recorder) EndView() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if err := r.active(); err != nil {
		return err
	}
	r.doc.Run(r.viewEnd.End)
	r.viewMu.Lock()
	r.view = nil
	r.viewMu.Unlock()
	return nil
}

// PageExit flushes pending mutations and the active segment through the
// sink's exit path.
func (r *Recorder) PageExit(reason FlushReason) error {
	if !reason.IsPageExit() {
		return fmt.Errorf("%w: %q", ErrNotPageExit, reason)
	}
	if err := r.active(); err != nil {
		return err
	}
	r.doc.Run(func() { r.pageExit(reason) })
	return nil
}

// pageExit runs inside the document turn.
func (r *Recorder) pageExit(reason FlushReason) {
	if r.Status() != StatusRecording {
		return
	}
	r.flushMutations()
	r.segments.Flush(reason)
	r.logger.Debug("domreplay: page exit", "reason", reason)
}

// ReportClickAction records a frustration record for a classified click.
func (r *Recorder) ReportClickAction(action ClickAction) error {
	if err := r.active(); err != nil {
		return err
	}
	r.doc.Run(func() { r.frustration.Report(action) })
	return nil
}

// Stats returns the counters of a view.
func (r *Recorder) Stats(viewID string) segment.ViewStats {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.segments == nil {
		return segment.ViewStats{}
	}
	return r.segments.Stats(viewID)
}

// Stop flushes pending mutations and the active segment with the stop
// reason, waits for compression and delivery, then releases observers and
// the worker. ctx bounds the wait.
func (r *Recorder) Stop(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	switch r.Status() {
	case StatusNotStarted:
		r.status.Store(int32(StatusStopped))
		return nil
	case StatusStopped:
		return nil
	}

	r.doc.Run(r.flushMutations)
	r.status.Store(int32(StatusStopped))

	drained := make(chan struct{})
	go func() {
		r.segments.Stop()
		r.assembler.Wait()
		close(drained)
	}()
	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = fmt.Errorf("domreplay: stop: %w", ctx.Err())
		r.logger.Warn("domreplay: stop before drain", "error", ctx.Err())
	}

	r.doc.Run(func() {
		for _, remove := range r.lifecycles {
			remove()
		}
		for _, t := range r.trackers {
			t.Stop()
		}
		r.mutations.Stop()
		r.shadows.Stop()
	})
	if cerr := r.client.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("domreplay: stop: %w", cerr)
	}
	r.logger.Info("domreplay: stopped")
	return err
}
