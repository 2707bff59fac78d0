// Package throttle bounds failed code attempts per (UMID, accessor) pair.
package throttle

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeebo/xxh3"

	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

const keyPrefix = "umid:throttle:"

// Store counts attempts per key inside a fixed window that starts at the first
// one. RecordFailure must increment and return the new count atomically.
type Store interface {
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Clear(ctx context.Context, key string) error
}

// SanitizeKeySegment escapes the key delimiter so one segment cannot spill into another.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Key derives a fixed-width store key for an accessor attempting a UMID.
func Key(umidID id.UMIDID, accessorID id.UserID) string {
	raw := SanitizeKeySegment(umidID.String()) + ":" + SanitizeKeySegment(accessorID.String())
	sum := xxh3.HashString128(raw).Bytes()
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Result is the outcome of reserving an attempt. Failures counts the
// attempts already made in the window before this one.
type Result struct {
	Allowed  bool
	Failures int
	Limit    int
}

type Service struct {
	store       Store
	maxFailures int
	window      time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimits overrides the failure budget. Non-positive values are ignored.
func WithLimits(maxFailures int, window time.Duration) Option {
	return func(s *Service) {
		if maxFailures > 0 {
			s.maxFailures = maxFailures
		}
		if window > 0 {
			s.window = window
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("throttle store is required")
	}
	s := &Service{
		store:       store,
		maxFailures: 5,
		window:      5 * time.Minute,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Acquire reserves one attempt for the accessor. The counter is incremented
// before the attempt is compared against the limit, so concurrent callers
// cannot all observe the same count and slip past it. Attempts that end in a
// verified code give the reservation back through Clear.
func (s *Service) Acquire(ctx context.Context, umidID id.UMIDID, accessorID id.UserID) (*Result, error) {
	attempts, err := s.store.RecordFailure(ctx, Key(umidID, accessorID), s.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reserve throttle attempt")
	}
	res := &Result{
		Allowed:  attempts <= s.maxFailures,
		Failures: attempts - 1,
		Limit:    s.maxFailures,
	}
	if !res.Allowed {
		s.metrics.IncRejected()
		s.logger.WarnContext(ctx, "access attempt throttled",
			"umid_id", umidID,
			"accessor_id", accessorID,
			"failures", res.Failures,
		)
	}
	return res, nil
}

// Clear resets the count after a successful verification.
func (s *Service) Clear(ctx context.Context, umidID id.UMIDID, accessorID id.UserID) error {
	if err := s.store.Clear(ctx, Key(umidID, accessorID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear throttle state")
	}
	return nil
}

// Metrics tracks throttle decisions and backend health.
type Metrics struct {
	Rejected prometheus.Counter
	Degraded prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_throttle_rejected_total",
			Help: "Total number of access attempts rejected by the throttle",
		}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "umid_throttle_degraded",
			Help: "1 while the throttle serves from the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
