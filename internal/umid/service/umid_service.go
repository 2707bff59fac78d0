package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"umid/internal/accesslog"
	"umid/internal/totp"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/sentinel"
	"umid/pkg/requestcontext"
)

// IssueRequest carries the patient's initial data and optional security overrides.
// A nil AllowedRoles grants no role a data subset; only the emergency override
// (when enabled) discloses anything.
type IssueRequest struct {
	PatientID         id.PatientID
	Data              models.MedicalData
	AllowedRoles      map[id.Role][]models.Field
	ToleranceSteps    *uint
	QRRotation        *time.Duration
	EmergencyOverride *bool
}

// IssueResult is returned once. Secret is never retrievable again.
type IssueResult struct {
	UMID            *models.UMID
	Secret          totp.Secret
	ProvisioningURI string
}

// CodeView is the owner's rendering of the current code.
type CodeView struct {
	Code      string    `json:"code"`
	QRPayload string    `json:"qr_payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue creates the patient's active UMID. It fails with a conflict when one
// already exists; the existing record is left untouched.
func (s *Service) Issue(ctx context.Context, caller models.Caller, req IssueRequest) (*IssueResult, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.Issue")
	defer span.End()
	defer s.metrics.ObserveIssue(time.Now())

	if req.PatientID.IsNil() {
		return nil, recordErr(span, dErrors.New(dErrors.CodeBadRequest, "patient id is required"))
	}
	if !caller.IsAdmin() && caller.ID.AsPatient() != req.PatientID {
		return nil, recordErr(span, dErrors.New(dErrors.CodeForbidden, "only the patient or an administrator may issue a umid"))
	}

	settings, err := s.initialSecurity(req)
	if err != nil {
		return nil, recordErr(span, err)
	}
	data := req.Data.Clone()
	data.Normalize()

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, recordErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate secret"))
	}
	umidID := id.NewUMIDID()
	sealed, err := s.sealer.Seal(secret, models.SecretAAD(umidID))
	if err != nil {
		return nil, recordErr(span, err)
	}
	settings.SealedSecret = sealed

	u, err := models.NewUMID(umidID, req.PatientID, data, settings, requestcontext.Now(ctx))
	if err != nil {
		return nil, recordErr(span, err)
	}

	err = s.tx.RunInTx(withShardKey(ctx, req.PatientID.String()), func(txCtx context.Context) error {
		return s.store.CreateIfNoActive(txCtx, u)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncIssueConflict()
			s.logger.InfoContext(ctx, "umid issuance rejected: active umid exists",
				"patient_id", req.PatientID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, recordErr(span, wrapUMIDErr(err, "failed to store umid"))
	}

	uri, err := totp.ProvisioningURI(secret, s.cfg.Issuer, umidID.String(), settings.StepSeconds)
	if err != nil {
		return nil, recordErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build provisioning uri"))
	}

	s.metrics.IncIssued()
	span.SetAttributes(attribute.String("umid.id", umidID.String()))
	s.logger.InfoContext(ctx, "umid issued",
		"umid_id", umidID,
		"patient_id", req.PatientID,
		"issued_by", caller.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &IssueResult{UMID: u.Redacted(), Secret: secret, ProvisioningURI: uri}, nil
}

func (s *Service) initialSecurity(req IssueRequest) (models.SecuritySettings, error) {
	roles, err := models.NormalizeAllowedRoles(req.AllowedRoles)
	if err != nil {
		return models.SecuritySettings{}, err
	}
	settings := models.SecuritySettings{
		StepSeconds:       s.cfg.StepSeconds,
		ToleranceSteps:    s.cfg.DefaultToleranceSteps,
		QRRotation:        s.cfg.QRRotation,
		AllowedRoles:      roles,
		EmergencyOverride: s.cfg.DefaultEmergencyOverride,
	}
	if settings.QRRotation == 0 {
		settings.QRRotation = models.DefaultQRRotation
	}
	if req.ToleranceSteps != nil {
		settings.ToleranceSteps = *req.ToleranceSteps
	}
	if req.QRRotation != nil {
		settings.QRRotation = *req.QRRotation
	}
	if req.EmergencyOverride != nil {
		settings.EmergencyOverride = *req.EmergencyOverride
	}
	if err := settings.Validate(s.cfg.MaxToleranceSteps); err != nil {
		return models.SecuritySettings{}, err
	}
	return settings, nil
}

// UpdateLinkedData merges upd into a new linked-data version.
// Deactivated and unknown UMIDs are both reported as not found.
func (s *Service) UpdateLinkedData(ctx context.Context, caller models.Caller, umidID id.UMIDID, upd models.MedicalDataUpdate) (*models.UMID, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.UpdateLinkedData")
	defer span.End()

	if err := requireUMIDID(umidID); err != nil {
		return nil, recordErr(span, err)
	}
	if upd.IsEmpty() {
		return nil, recordErr(span, dErrors.New(dErrors.CodeBadRequest, "no linked data changes supplied"))
	}

	now := requestcontext.Now(ctx)
	var merged models.MedicalData
	u, err := s.store.Execute(ctx, umidID,
		func(u *models.UMID) error {
			if err := requireActiveManaged(caller, u); err != nil {
				return err
			}
			data, err := upd.MergeInto(u.LinkedData.Data)
			if err != nil {
				return err
			}
			merged = data
			return nil
		},
		func(u *models.UMID) {
			u.ApplyLinkedData(merged, now)
		},
	)
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to update linked data"))
	}

	s.logger.InfoContext(ctx, "umid linked data updated",
		"umid_id", umidID,
		"data_version", u.LinkedData.Version,
		"request_id", requestcontext.RequestID(ctx),
	)
	return u.Redacted(), nil
}

// UpdateSecuritySettings changes disclosure and verification settings.
// The secret itself cannot be changed; issue a new UMID instead.
func (s *Service) UpdateSecuritySettings(ctx context.Context, caller models.Caller, umidID id.UMIDID, upd models.SecurityUpdate) (*models.UMID, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.UpdateSecuritySettings")
	defer span.End()

	if err := requireUMIDID(umidID); err != nil {
		return nil, recordErr(span, err)
	}
	if upd.IsEmpty() {
		return nil, recordErr(span, dErrors.New(dErrors.CodeBadRequest, "no security changes supplied"))
	}

	now := requestcontext.Now(ctx)
	var next models.SecuritySettings
	u, err := s.store.Execute(ctx, umidID,
		func(u *models.UMID) error {
			if err := requireActiveManaged(caller, u); err != nil {
				return err
			}
			settings, err := upd.MergeInto(u.Security, s.cfg.MaxToleranceSteps)
			if err != nil {
				return err
			}
			next = settings
			return nil
		},
		func(u *models.UMID) {
			u.ApplySecurity(next, now)
		},
	)
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to update security settings"))
	}

	s.logger.InfoContext(ctx, "umid security settings updated",
		"umid_id", umidID,
		"emergency_override", u.Security.EmergencyOverride,
		"request_id", requestcontext.RequestID(ctx),
	)
	return u.Redacted(), nil
}

// Deactivate permanently retires a UMID. Deactivating an already deactivated
// UMID succeeds without changing it. The record and its access log are kept.
func (s *Service) Deactivate(ctx context.Context, caller models.Caller, umidID id.UMIDID) error {
	ctx, span := tracer.Start(ctx, "UMID.Service.Deactivate")
	defer span.End()

	if err := requireUMIDID(umidID); err != nil {
		return recordErr(span, err)
	}

	now := requestcontext.Now(ctx)
	alreadyInactive := false
	_, err := s.store.Execute(ctx, umidID,
		func(u *models.UMID) error {
			if !caller.CanManage(u) {
				return dErrors.New(dErrors.CodeNotFound, "umid not found")
			}
			if err := u.CanDeactivate(); err != nil {
				alreadyInactive = true
				return err
			}
			return nil
		},
		func(u *models.UMID) {
			u.ApplyDeactivation(now)
		},
	)
	if alreadyInactive {
		return nil
	}
	if err != nil {
		return recordErr(span, wrapUMIDErr(err, "failed to deactivate umid"))
	}

	s.metrics.IncDeactivated()
	s.logger.InfoContext(ctx, "umid deactivated",
		"umid_id", umidID,
		"deactivated_by", caller.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// GetAccessLogs returns the newest entries first. limit is clamped to the
// configured bounds; zero or negative selects the default.
func (s *Service) GetAccessLogs(ctx context.Context, caller models.Caller, umidID id.UMIDID, limit int) ([]accesslog.Entry, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.GetAccessLogs")
	defer span.End()

	if _, err := s.loadManaged(ctx, caller, umidID); err != nil {
		return nil, recordErr(span, err)
	}
	entries, err := s.logs.List(ctx, umidID, s.clampLogLimit(limit))
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to read access logs"))
	}
	return entries, nil
}

func (s *Service) clampLogLimit(limit int) int {
	defLimit, maxLimit := s.cfg.DefaultLogLimit, s.cfg.MaxLogLimit
	if defLimit <= 0 {
		defLimit = models.DefaultListLimit
	}
	if maxLimit <= 0 {
		maxLimit = models.MaxListLimit
	}
	switch {
	case limit <= 0:
		return defLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

// CurrentCode renders the code the patient presents to a clinician. Only the
// owner may see it; administrators manage UMIDs but never hold codes.
func (s *Service) CurrentCode(ctx context.Context, caller models.Caller, umidID id.UMIDID) (*CodeView, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.CurrentCode")
	defer span.End()

	if err := requireUMIDID(umidID); err != nil {
		return nil, recordErr(span, err)
	}
	u, err := s.store.FindByID(ctx, umidID)
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to load umid"))
	}
	if !u.IsOwnedBy(caller.ID) || !u.IsActive {
		return nil, recordErr(span, dErrors.New(dErrors.CodeNotFound, "umid not found"))
	}

	secret, err := s.sealer.Open(u.Security.SealedSecret, models.SecretAAD(u.ID))
	if err != nil {
		return nil, recordErr(span, err)
	}
	now := requestcontext.Now(ctx)
	code, err := totp.CurrentCode(secret, now, u.Security.StepSeconds)
	if err != nil {
		return nil, recordErr(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive code"))
	}

	expires := totp.WindowEnd(now, u.Security.QRRotation)
	if stepEnd := totp.WindowEnd(now, time.Duration(u.Security.StepSeconds)*time.Second); stepEnd.Before(expires) {
		expires = stepEnd
	}
	return &CodeView{
		Code:      code,
		QRPayload: fmt.Sprintf("umid:%s:%s", u.ID, code),
		ExpiresAt: expires,
	}, nil
}

// LinkedDataHistory returns every linked-data version, oldest first.
func (s *Service) LinkedDataHistory(ctx context.Context, caller models.Caller, umidID id.UMIDID) ([]models.LinkedMedicalData, error) {
	ctx, span := tracer.Start(ctx, "UMID.Service.LinkedDataHistory")
	defer span.End()

	if _, err := s.loadManaged(ctx, caller, umidID); err != nil {
		return nil, recordErr(span, err)
	}
	versions, err := s.store.ListDataVersions(ctx, umidID)
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to read linked data history"))
	}
	return versions, nil
}

func requireActiveManaged(caller models.Caller, u *models.UMID) error {
	if !caller.CanManage(u) {
		return dErrors.New(dErrors.CodeNotFound, "umid not found")
	}
	if err := u.CanMutate(); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return dErrors.New(dErrors.CodeNotFound, "umid not found or deactivated")
		}
		return err
	}
	return nil
}

func recordErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}
