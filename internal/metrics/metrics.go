// CLAUDE:SUMMARY Prometheus collectors for records, segments, deliveries, desyncs and dropped mutations.
// Package metrics exposes the recorder's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hazyhaar/domreplay/record"
)

// Metrics provides observability for one recorder process.
type Metrics struct {
	// Records added to segments by record type
	Records *prometheus.CounterVec

	// Segments flushed by flush reason
	Segments *prometheus.CounterVec

	// Segment bytes before and after compression
	SegmentBytes *prometheus.CounterVec

	// Segments dropped before delivery (encoder failure)
	SegmentsLost *prometheus.CounterVec

	// Delivery outcomes by path and result
	Deliveries *prometheus.CounterVec

	EncoderDesyncs prometheus.Counter

	// Mutation notifications discarded by precondition checks
	DroppedMutations prometheus.Counter
}

// New registers the metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domreplay_records_total",
			Help: "Total records added to segments by record type",
		}, []string{"type"}),

		Segments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domreplay_segments_flushed_total",
			Help: "Total segments flushed by flush reason",
		}, []string{"reason"}),

		SegmentBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domreplay_segment_bytes_total",
			Help: "Total segment bytes by kind (raw, compressed)",
		}, []string{"kind"}),

		SegmentsLost: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domreplay_segments_lost_total",
			Help: "Total segments dropped before delivery by flush reason",
		}, []string{"reason"}),

		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "domreplay_deliveries_total",
			Help: "Total segment deliveries by path (send, exit) and result (ok, error)",
		}, []string{"path", "result"}),

		EncoderDesyncs: f.NewCounter(prometheus.CounterOpts{
			Name: "domreplay_encoder_desyncs_total",
			Help: "Total encoder streams abandoned after out-of-order responses",
		}),

		DroppedMutations: f.NewCounter(prometheus.CounterOpts{
			Name: "domreplay_mutations_dropped_total",
			Help: "Total mutation notifications discarded by precondition checks",
		}),
	}
}

// ObserveRecord counts one record.
func (m *Metrics) ObserveRecord(r record.Record) {
	if m != nil {
		m.Records.WithLabelValues(r.Type.String()).Inc()
	}
}

// ObserveSegment counts one flushed and encoded segment.
func (m *Metrics) ObserveSegment(reason record.FlushReason, raw, compressed int) {
	if m == nil {
		return
	}
	m.Segments.WithLabelValues(string(reason)).Inc()
	m.SegmentBytes.WithLabelValues("raw").Add(float64(raw))
	m.SegmentBytes.WithLabelValues("compressed").Add(float64(compressed))
}

// ObserveLost counts a segment that never reached the sink.
func (m *Metrics) ObserveLost(reason record.FlushReason) {
	if m != nil {
		m.SegmentsLost.WithLabelValues(string(reason)).Inc()
	}
}

// ObserveDelivery counts one sink outcome.
func (m *Metrics) ObserveDelivery(exit bool, err error) {
	if m == nil {
		return
	}
	path, result := "send", "ok"
	if exit {
		path = "exit"
	}
	if err != nil {
		result = "error"
	}
	m.Deliveries.WithLabelValues(path, result).Inc()
}

// IncrementDesyncs counts one desynchronized encoder stream.
func (m *Metrics) IncrementDesyncs() {
	if m != nil {
		m.EncoderDesyncs.Inc()
	}
}

// AddDroppedMutations counts discarded mutation notifications.
func (m *Metrics) AddDroppedMutations(n int) {
	if m != nil {
		m.DroppedMutations.Add(float64(n))
	}
}
