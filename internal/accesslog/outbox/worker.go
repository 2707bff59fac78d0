// Package outbox relays access-log events from the PostgreSQL outbox table to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"umid/internal/platform/kafka"
	"umid/pkg/platform/tx"
)

// Entry is one unpublished outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Store claims and acknowledges outbox rows. FetchUnpublished must lock the
// rows it returns for the surrounding transaction.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer publishes Kafka messages synchronously.
type Producer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Worker polls the outbox and publishes each batch inside one transaction, so
// a failed publish leaves the rows for the next poll. Delivery is at-least-once.
type Worker struct {
	store     Store
	producer  Producer
	txRunner  tx.Runner
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(store Store, producer Producer, txRunner tx.Runner, topic string, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		producer:  producer,
		txRunner:  txRunner,
		topic:     topic,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were relayed.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	var relayed int
	err := w.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := w.store.FetchUnpublished(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			msgs[i] = kafka.Message{
				Topic: w.topic,
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: map[string]string{
					"event_type": e.EventType,
					"event_id":   e.ID.String(),
				},
			}
			ids[i] = e.ID
		}
		if err := w.producer.Publish(ctx, msgs...); err != nil {
			w.metrics.IncPublishFailures()
			return err
		}
		if err := w.store.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	w.metrics.AddPublished(relayed)
	return relayed, nil
}

// Metrics tracks relay throughput.
type Metrics struct {
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_outbox_published_total",
			Help: "Total number of outbox events published to Kafka",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "umid_outbox_publish_failures_total",
			Help: "Total number of outbox batches that failed to publish",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) IncPublishFailures() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
