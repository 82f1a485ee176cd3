// Package metrics holds the Prometheus collectors for the injection engine.
//
// All methods are safe on a nil *Metrics so components can run without a
// registry (tests, one-shot CLI commands).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery paths.
const (
	PathSingle  = "single"
	PathChunked = "chunked"
)

// Metrics holds all engine collectors.
type Metrics struct {
	Deliveries       *prometheus.CounterVec
	DeliveryCommands prometheus.Counter
	Injections       prometheus.Counter
	EncodeFailures   prometheus.Counter
	ControlRequests  *prometheus.CounterVec
}

// New registers the engine collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userscript_deliveries_total",
				Help: "Code deliveries into the target context by path",
			},
			[]string{"path"},
		),
		DeliveryCommands: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "userscript_delivery_commands_total",
				Help: "Commands sent through the transport",
			},
		),
		Injections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "userscript_injections_total",
				Help: "Userscripts injected on navigation",
			},
		),
		EncodeFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "userscript_encode_failures_total",
				Help: "Userscripts skipped because encoding failed",
			},
		),
		ControlRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userscript_control_requests_total",
				Help: "Control requests received from the target context by action",
			},
			[]string{"action"},
		),
	}
}

// ObserveDelivery records one delivery and the number of commands it sent.
func (m *Metrics) ObserveDelivery(path string, commands int) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(path).Inc()
	m.DeliveryCommands.Add(float64(commands))
}

// ObserveInjection records one injected script.
func (m *Metrics) ObserveInjection() {
	if m == nil {
		return
	}
	m.Injections.Inc()
}

// ObserveEncodeFailure records one failed encoding.
func (m *Metrics) ObserveEncodeFailure() {
	if m == nil {
		return
	}
	m.EncodeFailures.Inc()
}

// ObserveControl records one control request.
func (m *Metrics) ObserveControl(action string) {
	if m == nil {
		return
	}
	m.ControlRequests.WithLabelValues(action).Inc()
}
