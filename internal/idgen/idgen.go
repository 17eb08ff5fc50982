// CLAUDE:SUMMARY Pluggable id generators (UUIDv7, UUIDv4, prefixed, sequence) for sessions, views and spool rows.
// Package idgen generates the session, view and spool identifiers.
package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a generator of time-sortable RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// UUIDv4 returns a generator of random UUID v4 strings, the format replay
// intakes expect for session and view ids.
func UUIDv4() Generator {
	return func() string {
		return uuid.NewString()
	}
}

// Prefixed prepends prefix to every id of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a deterministic generator: prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// Default is used for spool rows.
var Default Generator = UUIDv7()

// New produces an id with Default.
func New() string {
	return Default()
}

// Parse validates a UUID and returns its canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return u.String(), nil
}
