package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"umid/internal/accesslog"
	"umid/internal/platform/config"
	"umid/internal/totp"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/sentinel"
	"umid/pkg/platform/tx"
)

var tracer = otel.Tracer("umid")

// Store persists UMID records. CreateIfNoActive is the atomic conditional
// write guarding the one-active-UMID-per-patient invariant.
type Store interface {
	CreateIfNoActive(ctx context.Context, u *models.UMID) error
	FindByID(ctx context.Context, umidID id.UMIDID) (*models.UMID, error)
	Execute(ctx context.Context, umidID id.UMIDID, validate func(*models.UMID) error, mutate func(*models.UMID)) (*models.UMID, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.UMID, error)
	Query(ctx context.Context, f models.Filter) ([]*models.UMID, error)
	ListDataVersions(ctx context.Context, umidID id.UMIDID) ([]models.LinkedMedicalData, error)
}

// AccessLogReader reads the append-only access log. The lifecycle manager
// never writes to it.
type AccessLogReader interface {
	List(ctx context.Context, umidID id.UMIDID, limit int) ([]accesslog.Entry, error)
	IDs(ctx context.Context, umidID id.UMIDID) ([]id.AccessLogID, error)
}

// Sealer protects TOTP secrets at rest.
type Sealer interface {
	Seal(secret totp.Secret, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) (totp.Secret, error)
}

// Service is the UMID lifecycle manager and query gateway.
type Service struct {
	store   Store
	logs    AccessLogReader
	sealer  Sealer
	cfg     config.UMID
	tx      tx.Runner
	logger  *slog.Logger
	metrics *Metrics
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

// WithTxRunner sets the transaction boundary for issuance. PostgreSQL
// deployments pass the SQL runner; the default is an in-process sharded lock.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithConfig(cfg config.UMID) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(store Store, logs AccessLogReader, sealer Sealer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logs:   logs,
		sealer: sealer,
		cfg:    config.Default().UMID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newShardedTx(0)
	}
	return s
}

// wrapUMIDErr translates store sentinels into domain errors. Domain errors
// raised inside validate callbacks pass through unchanged.
func wrapUMIDErr(err error, action string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "umid not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "patient already has an active umid")
	case isDomainErr(err):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, action+": request cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, action)
	}
}

func isDomainErr(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}

func requireUMIDID(umidID id.UMIDID) error {
	if umidID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "umid id is required")
	}
	return nil
}

// loadManaged fetches a UMID the caller is allowed to manage. A UMID owned by
// someone else is reported as not found so ids cannot be probed.
func (s *Service) loadManaged(ctx context.Context, caller models.Caller, umidID id.UMIDID) (*models.UMID, error) {
	if err := requireUMIDID(umidID); err != nil {
		return nil, err
	}
	u, err := s.store.FindByID(ctx, umidID)
	if err != nil {
		return nil, wrapUMIDErr(err, "failed to load umid")
	}
	if !caller.CanManage(u) {
		return nil, dErrors.New(dErrors.CodeNotFound, "umid not found")
	}
	return u, nil
}
