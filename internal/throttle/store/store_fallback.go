package store

import (
	"context"
	"log/slog"
	"time"

	"umid/internal/throttle"
	"umid/pkg/platform/circuit"
)

// Fallback serves from primary and switches to fallback once the circuit
// opens. While open, primary is still tried so the circuit can close again.
// Counters are not copied between backends on a switch.
type Fallback struct {
	primary  throttle.Store
	fallback throttle.Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *throttle.Metrics
}

func NewFallback(primary, fallback throttle.Store, breaker *circuit.Breaker, logger *slog.Logger, metrics *throttle.Metrics) *Fallback {
	if breaker == nil {
		breaker = circuit.New("throttle")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
		metrics:  metrics,
	}
}

func (f *Fallback) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	return f.do(ctx, func(s throttle.Store) (int, error) {
		return s.RecordFailure(ctx, key, window)
	})
}

func (f *Fallback) Clear(ctx context.Context, key string) error {
	_, err := f.do(ctx, func(s throttle.Store) (int, error) {
		return 0, s.Clear(ctx, key)
	})
	return err
}

func (f *Fallback) do(ctx context.Context, op func(throttle.Store) (int, error)) (int, error) {
	if f.breaker.IsOpen() {
		if _, err := op(f.primary); err == nil {
			f.recordSuccess(ctx)
		} else {
			f.breaker.RecordFailure()
		}
		return op(f.fallback)
	}

	n, err := op(f.primary)
	if err == nil {
		f.recordSuccess(ctx)
		return n, nil
	}
	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.metrics.SetDegraded(true)
		f.logger.WarnContext(ctx, "throttle store circuit opened, using in-memory fallback",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
	if useFallback {
		return op(f.fallback)
	}
	return 0, err
}

func (f *Fallback) recordSuccess(ctx context.Context) {
	if _, change := f.breaker.RecordSuccess(); change.Closed {
		f.metrics.SetDegraded(false)
		f.logger.InfoContext(ctx, "throttle store circuit closed", "breaker", f.breaker.Name())
	}
}
