package serialize

import (
	"math"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/internal/weakmap"
)

// ScrollPosition is an element scroll offset in whole pixels.
type ScrollPosition struct {
	Top  float64
	Left float64
}

// ScrollMap remembers element scroll offsets between full snapshots. It
// is filled by the initial snapshot and by the scroll tracker.
type ScrollMap struct {
	m *weakmap.Map[dom.Node, ScrollPosition]
}

// NewScrollMap returns an empty map.
func NewScrollMap() *ScrollMap {
	return &ScrollMap{m: weakmap.New[dom.Node, ScrollPosition]()}
}

func (s *ScrollMap) Set(n *dom.Node, p ScrollPosition) {
	if s != nil {
		s.m.Set(n, p)
	}
}

func (s *ScrollMap) Get(n *dom.Node) (ScrollPosition, bool) {
	if s == nil {
		return ScrollPosition{}, false
	}
	return s.m.Get(n)
}

// roundHalfUp rounds like Math.round.
func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}
