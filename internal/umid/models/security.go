package models

import (
	"fmt"
	"time"

	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

// QR rotation bounds.
const (
	DefaultQRRotation = 30 * time.Second
	MinQRRotation     = 15 * time.Second
	MaxQRRotation     = 10 * time.Minute
)

// SecuritySettings controls verification and disclosure for one UMID.
//
// Invariants:
//   - SealedSecret is written once at issuance and never serialized
//   - ToleranceSteps never exceeds the configured maximum
//   - QRRotation stays within [MinQRRotation, MaxQRRotation]
//   - AllowedRoles only names valid roles and fields; an empty list is an explicit deny
type SecuritySettings struct {
	SealedSecret      []byte              `json:"-"`
	StepSeconds       uint                `json:"step_seconds"`
	ToleranceSteps    uint                `json:"tolerance_steps"`
	QRRotation        time.Duration       `json:"qr_rotation"`
	AllowedRoles      map[id.Role][]Field `json:"allowed_roles"`
	EmergencyOverride bool                `json:"emergency_override"`
}

// Validate checks the settings against maxTolerance.
func (s SecuritySettings) Validate(maxTolerance uint) error {
	if s.StepSeconds == 0 {
		return dErrors.New(dErrors.CodeValidation, "step_seconds must be positive")
	}
	if s.ToleranceSteps > maxTolerance {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("tolerance_steps must be at most %d", maxTolerance))
	}
	if s.QRRotation < MinQRRotation || s.QRRotation > MaxQRRotation {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("qr_rotation must be between %s and %s", MinQRRotation, MaxQRRotation))
	}
	for role := range s.AllowedRoles {
		if !role.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown role: "+string(role))
		}
	}
	return nil
}

// NormalizeAllowedRoles validates and canonicalizes a role → fields map.
func NormalizeAllowedRoles(in map[id.Role][]Field) (map[id.Role][]Field, error) {
	out := make(map[id.Role][]Field, len(in))
	for role, fields := range in {
		if !role.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown role: "+string(role))
		}
		if fields == nil {
			fields = []Field{}
		}
		norm, err := NormalizeFields(fields)
		if err != nil {
			return nil, err
		}
		out[role] = norm
	}
	return out, nil
}

// Clone returns a deep copy.
func (s SecuritySettings) Clone() SecuritySettings {
	c := s
	if s.SealedSecret != nil {
		c.SealedSecret = append([]byte(nil), s.SealedSecret...)
	}
	if s.AllowedRoles != nil {
		c.AllowedRoles = make(map[id.Role][]Field, len(s.AllowedRoles))
		for role, fields := range s.AllowedRoles {
			c.AllowedRoles[role] = append([]Field{}, fields...)
		}
	}
	return c
}

// SecurityUpdate is a partial settings change. The secret is never updatable.
type SecurityUpdate struct {
	ToleranceSteps    *uint
	QRRotation        *time.Duration
	AllowedRoles      map[id.Role][]Field
	EmergencyOverride *bool
}

func (u SecurityUpdate) IsEmpty() bool {
	return u.ToleranceSteps == nil && u.QRRotation == nil && u.AllowedRoles == nil && u.EmergencyOverride == nil
}

// MergeInto returns base with the update applied and validated.
// A non-nil AllowedRoles replaces the whole mapping.
func (u SecurityUpdate) MergeInto(base SecuritySettings, maxTolerance uint) (SecuritySettings, error) {
	out := base.Clone()
	if u.ToleranceSteps != nil {
		out.ToleranceSteps = *u.ToleranceSteps
	}
	if u.QRRotation != nil {
		out.QRRotation = *u.QRRotation
	}
	if u.AllowedRoles != nil {
		roles, err := NormalizeAllowedRoles(u.AllowedRoles)
		if err != nil {
			return SecuritySettings{}, err
		}
		out.AllowedRoles = roles
	}
	if u.EmergencyOverride != nil {
		out.EmergencyOverride = *u.EmergencyOverride
	}
	if err := out.Validate(maxTolerance); err != nil {
		return SecuritySettings{}, err
	}
	return out, nil
}
