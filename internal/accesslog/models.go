// Package accesslog records one immutable entry per access attempt against a UMID.
package accesslog

import (
	"time"

	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

// FailureReason explains why an access attempt was not verified.
type FailureReason string

const (
	ReasonInactiveOrMissing FailureReason = "inactive_or_missing"
	ReasonRateLimited       FailureReason = "rate_limited"
	ReasonMalformedCode     FailureReason = "malformed_code"
	ReasonExpiredCode       FailureReason = "expired_code"
	ReasonInvalidCode       FailureReason = "invalid_code"
	ReasonStoreUnavailable  FailureReason = "store_unavailable"
	ReasonInternalError     FailureReason = "internal_error"
)

// GrantBasis records which rule produced the granted scope of a verified attempt.
type GrantBasis string

const (
	GrantRole              GrantBasis = "role"
	GrantEmergencyOverride GrantBasis = "emergency_override"
	GrantExplicitEmpty     GrantBasis = "explicit_empty"
	GrantRoleNotPermitted  GrantBasis = "role_not_permitted"
)

// Entry is one access attempt. Entries are append-only.
//
// Invariants:
//   - Verified entries carry an AccessorID, a GrantBasis and no FailureReason
//   - unverified entries carry a FailureReason and an empty scope; the
//     accessor may be nil when the caller presented no identity
type Entry struct {
	ID            id.AccessLogID `json:"id"`
	UMIDID        id.UMIDID      `json:"umid_id"`
	AccessorID    id.UserID      `json:"accessor_id"`
	AccessorRole  id.Role        `json:"accessor_role"`
	AccessTime    time.Time      `json:"access_time"`
	Verified      bool           `json:"verified"`
	ScopeGranted  []models.Field `json:"scope_granted"`
	FailureReason FailureReason  `json:"failure_reason,omitempty"`
	GrantBasis    GrantBasis     `json:"grant_basis,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
}

// Validate checks the entry is internally consistent before it is persisted.
func (e Entry) Validate() error {
	if e.UMIDID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log requires umid id")
	}
	if e.AccessTime.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "access log requires access time")
	}
	if e.Verified {
		if e.AccessorID.IsNil() {
			return dErrors.New(dErrors.CodeInvariantViolation, "verified access requires accessor id")
		}
		if e.FailureReason != "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "verified access cannot carry a failure reason")
		}
		if e.GrantBasis == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "verified access requires a grant basis")
		}
		return nil
	}
	if e.FailureReason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "failed access requires a failure reason")
	}
	if len(e.ScopeGranted) > 0 || e.GrantBasis != "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "failed access cannot grant scope")
	}
	return nil
}

// Clone returns a copy that shares no slices with e.
func (e Entry) Clone() Entry {
	if e.ScopeGranted != nil {
		e.ScopeGranted = append([]models.Field{}, e.ScopeGranted...)
	}
	return e
}
