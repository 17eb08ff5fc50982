// CLAUDE:SUMMARY Package domreplay records a live document into compressed replay segments and delivers them to sinks.
// Package domreplay is the session-replay capture engine.
//
// A Recorder observes one dom.Document: it serializes a privacy-filtered
// full snapshot at the start of every view, then streams incremental
// records (mutations, pointer, scroll, viewport, input, media, stylesheet,
// focus, frustration) into size and time bounded segments. Finished
// segments are compressed by the encoder worker, assembled into multipart
// uploads and handed to a Sink.
//
// Session drives Recorders over real pages: Chrome tabs mirrored through
// CDP, or plain HTTP fetches parsed into a document.
package domreplay

import (
	"errors"

	"github.com/hazyhaar/domreplay/internal/encoder"
	"github.com/hazyhaar/domreplay/internal/tracker"
	"github.com/hazyhaar/domreplay/record"
)

// Status is the lifecycle state of a Recorder.
type Status int32

const (
	StatusNotStarted Status = iota
	StatusRecording
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusRecording:
		return "recording"
	case StatusStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrWorkerUnavailable is returned by Start when the compression worker
	// cannot be created. The recorder stays not-started.
	ErrWorkerUnavailable = encoder.ErrWorkerUnavailable

	// ErrNotStarted is returned by view operations before Start.
	ErrNotStarted = errors.New("domreplay: recorder not started")

	// ErrStopped is returned by operations on a stopped recorder.
	ErrStopped = errors.New("domreplay: recorder stopped")

	// ErrNotPageExit rejects PageExit reasons that are not page-exit reasons.
	ErrNotPageExit = errors.New("domreplay: not a page exit reason")
)

// View identifies the logical page view records are attributed to.
type View struct {
	ID string
}

// ClickAction is a click already classified by the host.
type ClickAction = tracker.ClickAction

// FlushReason re-exports the segment flush reasons accepted by PageExit.
type FlushReason = record.FlushReason

const (
	ReasonBeforeUnload     = record.ReasonBeforeUnload
	ReasonVisibilityHidden = record.ReasonVisibilityHidden
	ReasonPageHide         = record.ReasonPageHide
	ReasonPageFrozen       = record.ReasonPageFrozen
)
