package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for access requests.
type Metrics struct {
	// Attempts by outcome and failure reason (empty when verified)
	Attempts *prometheus.CounterVec

	// Verified grants by basis
	Grants *prometheus.CounterVec

	RequestLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "umid_access_attempts_total",
			Help: "Total access attempts by outcome and failure reason",
		}, []string{"outcome", "reason"}),

		Grants: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "umid_access_grants_total",
			Help: "Total verified access grants by basis",
		}, []string{"basis"}),

		RequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "umid_access_request_duration_seconds",
			Help:    "Duration of access requests including the audit write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementAttempt records one access attempt.
func (m *Metrics) IncrementAttempt(outcome, reason string) {
	if m != nil {
		m.Attempts.WithLabelValues(outcome, reason).Inc()
	}
}

// IncrementGrant records the basis of a verified grant.
func (m *Metrics) IncrementGrant(basis string) {
	if m != nil {
		m.Grants.WithLabelValues(basis).Inc()
	}
}

// ObserveRequestLatency records the total request duration.
func (m *Metrics) ObserveRequestLatency(d time.Duration) {
	if m != nil {
		m.RequestLatency.Observe(d.Seconds())
	}
}
