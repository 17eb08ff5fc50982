// CLAUDE:SUMMARY Delivery backends for segment payloads: HTTP, JSON lines, callback and fan-out router.
// Package sink holds the delivery backends for segment payloads.
package sink

import (
	"github.com/hazyhaar/domreplay/internal/payload"
)

// Sink delivers payloads. Send may retry; SendOnExit makes a single
// bounded attempt because the page is going away.
type Sink interface {
	payload.Sink
	Close() error
}
