package domreplay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/internal/sink"
	"github.com/hazyhaar/domreplay/internal/spool"
)

// Sink is the output interface for replay segments.
type Sink = sink.Sink

// Payload is one segment upload.
type Payload = payload.Payload

// SinkFunc receives payloads in-process. exit is true on the page-exit path.
type SinkFunc = sink.Func

// NewJSONLinesSink creates a JSON-lines sink writing to w (stdout when nil).
func NewJSONLinesSink(w io.Writer) Sink {
	return sink.NewJSONLines(w)
}

// NewHTTPSink creates a multipart POST sink with retry.
func NewHTTPSink(url string, logger *slog.Logger, opts ...sink.HTTPOption) Sink {
	return sink.NewHTTP(url, append([]sink.HTTPOption{sink.WithHTTPLogger(logger)}, opts...)...)
}

// OpenSpoolSink opens (or creates) a SQLite segment spool.
func OpenSpoolSink(path string, logger *slog.Logger) (*spool.Spool, error) {
	return spool.Open(path, spool.WithLogger(logger))
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn func(ctx context.Context, p Payload, exit bool) error) Sink {
	return sink.NewCallback(fn)
}

// Sinks is the delivery side built from configuration.
type Sinks struct {
	*sink.Router
	// Spool is the first configured spool, nil when there is none. The
	// admin server browses it.
	Spool *spool.Spool
}

// BuildSinks opens every configured sink behind one router. Without any
// configuration, segments go to stdout as JSON lines.
func BuildSinks(cfgs []SinkConfig, logger *slog.Logger) (*Sinks, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Sinks{}
	var all []Sink
	fail := func(err error) (*Sinks, error) {
		for _, s := range all {
			s.Close()
		}
		return nil, err
	}
	for _, c := range cfgs {
		switch c.Type {
		case "http":
			var opts []sink.HTTPOption
			if c.Retries > 0 {
				opts = append(opts, sink.WithRetries(c.Retries))
			}
			if c.Backoff > 0 {
				opts = append(opts, sink.WithBackoff(c.Backoff))
			}
			if c.ExitTimeout > 0 {
				opts = append(opts, sink.WithExitTimeout(c.ExitTimeout))
			}
			all = append(all, NewHTTPSink(c.URL, logger, opts...))
		case "spool":
			sp, err := OpenSpoolSink(c.Path, logger)
			if err != nil {
				return fail(fmt.Errorf("domreplay: sink spool: %w", err))
			}
			if out.Spool == nil {
				out.Spool = sp
			}
			all = append(all, sp)
		case "jsonl":
			if c.Path == "" || c.Path == "-" {
				all = append(all, NewJSONLinesSink(os.Stdout))
				continue
			}
			f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fail(fmt.Errorf("domreplay: sink jsonl: %w", err))
			}
			all = append(all, NewJSONLinesSink(f))
		default:
			return fail(fmt.Errorf("domreplay: unknown sink type %q", c.Type))
		}
	}
	if len(all) == 0 {
		all = append(all, NewJSONLinesSink(os.Stdout))
	}
	out.Router = sink.NewRouter(logger, all...)
	return out, nil
}
