package events

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for a Bus.
type Metrics struct {
	registry *prometheus.Registry

	dispatches  *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates bus collectors under namespace. They are registered on
// reg when given, otherwise on a private registry returned by Registry.
func NewMetrics(namespace string, reg ...prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "keel"
	}

	m := &Metrics{}

	m.dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatch_total",
			Help:      "Total number of event dispatches",
		},
		[]string{"event"},
	)

	m.invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "listener_invocations_total",
			Help:      "Total number of listener invocations",
		},
		[]string{"event"},
	)

	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent running listeners for a dispatch",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
		[]string{"event"},
	)

	var registerer prometheus.Registerer
	if len(reg) > 0 && reg[0] != nil {
		registerer = reg[0]
	} else {
		m.registry = prometheus.NewRegistry()
		registerer = m.registry
	}

	registerer.MustRegister(m.dispatches, m.invocations, m.duration)

	return m
}

// Registry returns the private registry, or nil when a Registerer was given.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observe records one finished dispatch.
func (m *Metrics) observe(event string, invocations int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.dispatches.WithLabelValues(event).Inc()

	if invocations > 0 {
		m.invocations.WithLabelValues(event).Add(float64(invocations))
		m.duration.WithLabelValues(event).Observe(elapsed.Seconds())
	}
}
