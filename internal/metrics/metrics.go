package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported at /metrics.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Associations    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foodgram_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Associations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_association_toggles_total",
				Help: "Favorite, shopping cart and follow toggles by outcome",
			},
			[]string{"kind", "action", "outcome"},
		),
	}

	reg.MustRegister(m.Requests, m.RequestDuration, m.Associations)
	return m
}

// ObserveAssociation counts one toggle attempt. It is safe on a nil receiver.
func (m *Metrics) ObserveAssociation(kind, action, outcome string) {
	if m == nil {
		return
	}
	m.Associations.WithLabelValues(kind, action, outcome).Inc()
}
