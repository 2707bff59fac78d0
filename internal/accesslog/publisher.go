package accesslog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "umid/pkg/domain"
	"umid/pkg/requestcontext"
)

// Store persists entries. Implementations never update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByUMID(ctx context.Context, umidID id.UMIDID, limit int) ([]Entry, error)
	ListIDsByUMID(ctx context.Context, umidID id.UMIDID) ([]id.AccessLogID, error)
}

// Publisher writes access-log entries with fail-closed semantics: the caller
// blocks until the write succeeds and MUST fail its operation otherwise.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit assigns an ID and timestamp when missing, validates and persists the entry.
func (p *Publisher) Emit(ctx context.Context, entry Entry) (Entry, error) {
	start := time.Now()

	if entry.ID.IsNil() {
		entry.ID = id.NewAccessLogID()
	}
	if entry.AccessTime.IsZero() {
		entry.AccessTime = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	if err := p.store.Append(ctx, entry); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: access log persistence failed",
				"umid_id", entry.UMIDID,
				"accessor_id", entry.AccessorID,
				"request_id", entry.RequestID,
				"error", err,
			)
		}
		return Entry{}, fmt.Errorf("access log persistence failed: %w", err)
	}

	p.metrics.ObservePersist(start)
	p.metrics.IncEmitted(entry.Verified)
	return entry, nil
}

// List returns the most recent entries for a UMID, newest first.
func (p *Publisher) List(ctx context.Context, umidID id.UMIDID, limit int) ([]Entry, error) {
	return p.store.ListByUMID(ctx, umidID, limit)
}

// IDs returns every entry id recorded for a UMID, oldest first.
func (p *Publisher) IDs(ctx context.Context, umidID id.UMIDID) ([]id.AccessLogID, error) {
	return p.store.ListIDsByUMID(ctx, umidID)
}
