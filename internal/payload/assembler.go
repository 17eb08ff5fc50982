package payload

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/record"
)

// Assembler builds payloads and delivers them in the background. Failed
// deliveries are reported, never retried here.
type Assembler struct {
	sink   Sink
	tracer trace.Tracer
	logger *slog.Logger
	report func(Payload, error)

	wg sync.WaitGroup
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(a *Assembler) { a.logger = l } }

// WithTracer sets the tracer. Default: the global provider's "domreplay/payload".
func WithTracer(t trace.Tracer) Option { return func(a *Assembler) { a.tracer = t } }

// WithReport sets a hook receiving every delivery outcome.
func WithReport(fn func(Payload, error)) Option { return func(a *Assembler) { a.report = fn } }

// NewAssembler returns an assembler delivering to sink.
func NewAssembler(sink Sink, opts ...Option) *Assembler {
	a := &Assembler{sink: sink, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer("domreplay/payload")
	}
	return a
}

// Deliver builds the payload of a flushed segment and sends it. Page-exit
// reasons use the sink's exit path.
func (a *Assembler) Deliver(ctx context.Context, res encoder.Result, meta record.SegmentMetadata, reason record.FlushReason) {
	p, err := Build(res, meta, reason)
	if err != nil {
		a.logger.Error("payload: build", "error", err)
		if a.report != nil {
			a.report(Payload{Metadata: record.EventMetadata{SegmentMetadata: meta}, Reason: reason}, err)
		}
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, span := a.tracer.Start(context.WithoutCancel(ctx), "payload.Deliver",
			trace.WithAttributes(
				attribute.String("session", meta.Session.ID),
				attribute.String("view", meta.View.ID),
				attribute.String("reason", string(reason)),
				attribute.Int("records", meta.RecordsCount),
				attribute.Int("compressed_bytes", res.OutputBytesCount),
			))
		defer span.End()

		var err error
		if reason.IsPageExit() {
			err = a.sink.SendOnExit(ctx, p)
		} else {
			err = a.sink.Send(ctx, p)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.logger.Warn("payload: delivery failed", "file", p.Filename, "reason", reason, "error", err)
		} else {
			a.logger.Debug("payload: delivered", "file", p.Filename, "bytes", len(p.Body))
		}
		if a.report != nil {
			a.report(p, err)
		}
	}()
}

// Wait blocks until in-flight deliveries return.
func (a *Assembler) Wait() {
	a.wg.Wait()
}
