// CLAUDE:SUMMARY Admin HTTP server: healthz, Prometheus metrics and browsing of spooled segments.
// Package admin serves the recorder's operational endpoints: health, the
// Prometheus registry and the spooled segments.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/domreplay/inspect"
	"github.com/hazyhaar/domreplay/internal/spool"
)

// Segments is the read side of the spool.
type Segments interface {
	List(ctx context.Context, viewID string, limit int) ([]spool.Entry, error)
	Get(ctx context.Context, id string) (spool.Entry, error)
}

// StatusFunc reports the recorder state for /healthz.
type StatusFunc func() any

// Config wires the admin server. Segments may be nil when no spool is
// configured.
type Config struct {
	Gatherer prometheus.Gatherer
	Segments Segments
	Status   StatusFunc
	Logger   *slog.Logger
}

// Handler returns the admin router.
func Handler(cfg Config) http.Handler {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if cfg.Status != nil {
			body["recorder"] = cfg.Status()
		}
		writeJSON(w, http.StatusOK, body)
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/segments", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if cfg.Segments == nil {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "no spool configured"})
					return
				}
				next.ServeHTTP(w, req)
			})
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list, err := cfg.Segments.List(r.Context(), r.URL.Query().Get("view"), queryInt(r, "limit", 100))
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			if list == nil {
				list = []spool.Entry{}
			}
			writeJSON(w, http.StatusOK, list)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			e, ok := getEntry(w, r, cfg)
			if !ok {
				return
			}
			raw, err := inspect.Decode(e.Segment)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			sum, err := inspect.Summarize(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"entry": e, "summary": sum})
		})

		r.Get("/{id}/raw", func(w http.ResponseWriter, r *http.Request) {
			e, ok := getEntry(w, r, cfg)
			if !ok {
				return
			}
			raw, err := inspect.Decode(e.Segment)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(raw)
		})
	})
	return r
}

func getEntry(w http.ResponseWriter, r *http.Request, cfg Config) (spool.Entry, bool) {
	e, err := cfg.Segments.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, spool.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return spool.Entry{}, false
	}
	if err != nil {
		cfg.Logger.Error("admin: segment lookup", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return spool.Entry{}, false
	}
	return e, true
}

// Serve runs the admin server on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("admin: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
