package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDelivery(PathSingle, 1)
	m.ObserveDelivery(PathChunked, 4)
	m.ObserveInjection()
	m.ObserveEncodeFailure()
	m.ObserveControl("getIds")
	m.ObserveControl("getIds")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(PathSingle)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(PathChunked)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.DeliveryCommands))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Injections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EncodeFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ControlRequests.WithLabelValues("getIds")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDelivery(PathSingle, 1)
		m.ObserveInjection()
		m.ObserveEncodeFailure()
		m.ObserveControl("x")
	})
}
