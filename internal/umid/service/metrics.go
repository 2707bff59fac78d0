package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the UMID lifecycle.
type Metrics struct {
	Issued        prometheus.Counter
	IssueConflict prometheus.Counter
	Deactivated   prometheus.Counter
	IssueDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_issued_total",
			Help: "Total number of UMIDs issued",
		}),
		IssueConflict: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_issue_conflicts_total",
			Help: "Total number of issuances rejected because an active UMID exists",
		}),
		Deactivated: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_deactivated_total",
			Help: "Total number of UMIDs deactivated",
		}),
		IssueDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "umid_issue_duration_seconds",
			Help:    "Duration of Issue operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncIssued() {
	if m == nil {
		return
	}
	m.Issued.Inc()
}

func (m *Metrics) IncIssueConflict() {
	if m == nil {
		return
	}
	m.IssueConflict.Inc()
}

func (m *Metrics) IncDeactivated() {
	if m == nil {
		return
	}
	m.Deactivated.Inc()
}

// ObserveIssue records the duration of an Issue call started at start.
func (m *Metrics) ObserveIssue(start time.Time) {
	if m == nil {
		return
	}
	m.IssueDuration.Observe(time.Since(start).Seconds())
}
