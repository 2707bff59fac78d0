// Package access is the verification and authorization gate in front of a
// patient's linked medical data. Every call records exactly one access-log
// entry, whatever the outcome.
package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"umid/internal/access/metrics"
	"umid/internal/access/ports"
	"umid/internal/accesslog"
	"umid/internal/totp"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/sentinel"
	"umid/pkg/requestcontext"
)

var tracer = otel.Tracer("umid")

// Outcome is the caller-visible result of an access request.
type Outcome string

const (
	// OutcomeGranted: verified, data released.
	OutcomeGranted Outcome = "granted"
	// OutcomeGrantedEmpty: verified, role listed with an empty subset.
	OutcomeGrantedEmpty Outcome = "granted_empty"
	// OutcomeRoleNotPermitted: verified, role not listed and no override.
	OutcomeRoleNotPermitted Outcome = "role_not_permitted"
	// OutcomeDenied: not verified.
	OutcomeDenied Outcome = "denied"
)

// Request is one presentation of a code by an authenticated accessor.
type Request struct {
	UMIDID       id.UMIDID
	Code         string
	AccessorRole id.Role
	AccessorID   id.UserID
}

// Result is a typed outcome; a failed verification is a Result, not an error.
type Result struct {
	LogID         id.AccessLogID          `json:"log_id"`
	Verified      bool                    `json:"verified"`
	Outcome       Outcome                 `json:"outcome"`
	FailureReason accesslog.FailureReason `json:"failure_reason,omitempty"`
	GrantBasis    accesslog.GrantBasis    `json:"grant_basis,omitempty"`
	ScopeGranted  []models.Field          `json:"scope_granted"`
	Data          models.Projection       `json:"data,omitempty"`
}

type Service struct {
	umids         ports.UMIDReader
	secrets       ports.SecretOpener
	throttle      ports.Throttle
	audit         ports.AuditLogger
	lookbackSteps uint
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithThrottle enables rate limiting of failed attempts.
func WithThrottle(t ports.Throttle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

// WithExpiredLookback sets how many steps past the tolerance window a code is
// still reported as expired rather than invalid.
func WithExpiredLookback(steps uint) Option {
	return func(s *Service) {
		s.lookbackSteps = steps
	}
}

func New(umids ports.UMIDReader, secrets ports.SecretOpener, audit ports.AuditLogger, opts ...Option) *Service {
	s := &Service{
		umids:         umids,
		secrets:       secrets,
		audit:         audit,
		lookbackSteps: 10,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestAccess verifies the presented code and returns the role-scoped
// projection. Errors are returned only for bad input, collaborator outages and
// audit write failures; in the last case no data is released.
func (s *Service) RequestAccess(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Access.Service.RequestAccess")
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.ObserveRequestLatency(time.Since(start))
	}()

	if req.UMIDID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "umid id is required")
	}
	if req.AccessorID.IsNil() {
		return s.denyWithError(ctx, req, accesslog.ReasonInternalError,
			dErrors.New(dErrors.CodeUnauthorized, "accessor identity is required"))
	}
	if !req.AccessorRole.IsValid() {
		return s.denyWithError(ctx, req, accesslog.ReasonInternalError,
			dErrors.New(dErrors.CodeForbidden, "unknown accessor role"))
	}
	span.SetAttributes(
		attribute.String("umid.id", req.UMIDID.String()),
		attribute.String("accessor.role", req.AccessorRole.String()),
	)

	u, err := s.umids.FindByID(ctx, req.UMIDID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.deny(ctx, req, accesslog.ReasonInactiveOrMissing)
		}
		return s.denyWithError(ctx, req, accesslog.ReasonStoreUnavailable,
			dErrors.Wrap(err, dErrors.CodeUnavailable, "credential store unavailable"))
	}
	if !u.IsActive {
		return s.deny(ctx, req, accesslog.ReasonInactiveOrMissing)
	}

	if s.throttle != nil {
		check, err := s.throttle.Acquire(ctx, req.UMIDID, req.AccessorID)
		if err != nil {
			return s.denyWithError(ctx, req, accesslog.ReasonStoreUnavailable, err)
		}
		if !check.Allowed {
			return s.deny(ctx, req, accesslog.ReasonRateLimited)
		}
	}

	secret, err := s.secrets.Open(u.Security.SealedSecret, models.SecretAAD(u.ID))
	if err != nil {
		return s.denyWithError(ctx, req, accesslog.ReasonInternalError, err)
	}

	now := requestcontext.Now(ctx)
	check := totp.Check(secret, req.Code, now, totp.Params{
		StepSeconds:    u.Security.StepSeconds,
		ToleranceSteps: u.Security.ToleranceSteps,
		LookbackSteps:  s.lookbackSteps,
	})
	if check != totp.OutcomeValid {
		return s.deny(ctx, req, failureFor(check))
	}
	s.clearThrottle(ctx, req)

	grant := EvaluateGrant(u.Security, req.AccessorRole)
	entry, err := s.audit.Emit(ctx, accesslog.Entry{
		UMIDID:       req.UMIDID,
		AccessorID:   req.AccessorID,
		AccessorRole: req.AccessorRole,
		AccessTime:   now,
		Verified:     true,
		ScopeGranted: grant.Fields,
		GrantBasis:   grant.Basis,
	})
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "access could not be recorded")
	}

	outcome := outcomeFor(grant.Basis)
	s.metrics.IncrementAttempt(string(outcome), "")
	s.metrics.IncrementGrant(string(grant.Basis))
	s.logger.InfoContext(ctx, "umid access verified",
		"umid_id", req.UMIDID,
		"accessor_id", req.AccessorID,
		"accessor_role", req.AccessorRole,
		"grant_basis", grant.Basis,
		"fields", len(grant.Fields),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Result{
		LogID:        entry.ID,
		Verified:     true,
		Outcome:      outcome,
		GrantBasis:   grant.Basis,
		ScopeGranted: grant.Fields,
		Data:         u.LinkedData.Data.Project(grant.Fields),
	}, nil
}

// deny records a failed attempt and returns it as a typed result.
func (s *Service) deny(ctx context.Context, req Request, reason accesslog.FailureReason) (*Result, error) {
	entry, err := s.audit.Emit(ctx, accesslog.Entry{
		UMIDID:        req.UMIDID,
		AccessorID:    req.AccessorID,
		AccessorRole:  req.AccessorRole,
		ScopeGranted:  []models.Field{},
		FailureReason: reason,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "access attempt could not be recorded")
	}

	s.metrics.IncrementAttempt(string(OutcomeDenied), string(reason))
	s.logger.WarnContext(ctx, "umid access denied",
		"umid_id", req.UMIDID,
		"accessor_id", req.AccessorID,
		"accessor_role", req.AccessorRole,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Result{
		LogID:         entry.ID,
		Verified:      false,
		Outcome:       OutcomeDenied,
		FailureReason: reason,
		ScopeGranted:  []models.Field{},
	}, nil
}

// denyWithError records the attempt and then surfaces cause. A failed audit
// write takes precedence over cause.
func (s *Service) denyWithError(ctx context.Context, req Request, reason accesslog.FailureReason, cause error) (*Result, error) {
	if _, err := s.deny(ctx, req, reason); err != nil {
		return nil, err
	}
	s.logger.ErrorContext(ctx, "umid access aborted",
		"umid_id", req.UMIDID,
		"reason", reason,
		"error", cause,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil, cause
}

func (s *Service) clearThrottle(ctx context.Context, req Request) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Clear(ctx, req.UMIDID, req.AccessorID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear throttle state",
			"umid_id", req.UMIDID,
			"error", err,
		)
	}
}
