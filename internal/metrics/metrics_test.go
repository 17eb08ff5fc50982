package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hazyhaar/domreplay/record"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRecord(record.Meta(1, "https://x", 10, 10))
	m.ObserveRecord(record.Focus(1, true))
	m.ObserveRecord(record.Focus(2, false))
	m.ObserveSegment(record.ReasonSegmentBytesLimit, 1000, 200)
	m.ObserveSegment(record.ReasonStop, 10, 5)
	m.ObserveLost(record.ReasonStop)
	m.ObserveDelivery(true, nil)
	m.ObserveDelivery(false, errors.New("boom"))
	m.IncrementDesyncs()
	m.AddDroppedMutations(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Records.WithLabelValues("focus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Segments.WithLabelValues("segment_bytes_limit")))
	assert.Equal(t, 1010.0, testutil.ToFloat64(m.SegmentBytes.WithLabelValues("raw")))
	assert.Equal(t, 205.0, testutil.ToFloat64(m.SegmentBytes.WithLabelValues("compressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SegmentsLost.WithLabelValues("stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("exit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("send", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncoderDesyncs))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DroppedMutations))
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	var m *Metrics
	m.ObserveRecord(record.ViewEnd(1))
	m.ObserveSegment(record.ReasonStop, 1, 1)
	m.ObserveDelivery(false, nil)
	m.IncrementDesyncs()
	m.AddDroppedMutations(1)
}
