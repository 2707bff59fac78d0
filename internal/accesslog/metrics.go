package accesslog

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks access-log persistence.
type Metrics struct {
	EntriesEmitted  *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers access-log metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "umid_access_logs_emitted_total",
			Help: "Total number of access-log entries persisted, by verification outcome",
		}, []string{"verified"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_access_logs_persist_failures_total",
			Help: "Total number of access-log entries that failed to persist",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "umid_access_logs_persist_duration_seconds",
			Help:    "Duration of access-log persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncEmitted(verified bool) {
	if m == nil {
		return
	}
	m.EntriesEmitted.WithLabelValues(strconv.FormatBool(verified)).Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

// ObservePersist records the duration since start.
func (m *Metrics) ObservePersist(start time.Time) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(time.Since(start).Seconds())
}
