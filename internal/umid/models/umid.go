package models

import (
	"time"

	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

// UMID is the aggregate root for a patient's medical credential.
//
// Invariants:
//   - ID and PatientID are immutable after construction
//   - at most one active UMID exists per patient (enforced by the store)
//   - IsActive only transitions true → false
//   - Version increases by one on every mutation
//   - LinkedData.Version increases by one on every linked-data change
type UMID struct {
	ID            id.UMIDID         `json:"id"`
	PatientID     id.PatientID      `json:"patient_id"`
	Version       int               `json:"version"`
	LinkedData    LinkedMedicalData `json:"linked_data"`
	Security      SecuritySettings  `json:"security"`
	IsActive      bool              `json:"is_active"`
	AccessHistory []id.AccessLogID  `json:"access_history,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	DeactivatedAt *time.Time        `json:"deactivated_at,omitempty"`
}

// NewUMID builds an active UMID. data must already be normalized.
func NewUMID(umidID id.UMIDID, patientID id.PatientID, data MedicalData, security SecuritySettings, now time.Time) (*UMID, error) {
	if umidID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "umid id cannot be nil")
	}
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient id cannot be nil")
	}
	if len(security.SealedSecret) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sealed secret is required")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &UMID{
		ID:        umidID,
		PatientID: patientID,
		Version:   1,
		LinkedData: LinkedMedicalData{
			Version:    1,
			Data:       data,
			RecordedAt: now,
		},
		Security:  security,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOwnedBy reports whether userID is the patient this UMID belongs to.
func (u *UMID) IsOwnedBy(userID id.UserID) bool {
	return u.PatientID == userID.AsPatient()
}

// CanMutate checks the UMID is still active.
func (u *UMID) CanMutate() error {
	if !u.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "umid is deactivated")
	}
	return nil
}

// ApplyLinkedData records a new linked-data version.
// Must only be called after CanMutate returns nil.
func (u *UMID) ApplyLinkedData(data MedicalData, now time.Time) {
	u.LinkedData = LinkedMedicalData{
		Version:    u.LinkedData.Version + 1,
		Data:       data,
		RecordedAt: now,
	}
	u.touch(now)
}

// ApplySecurity replaces the security settings, keeping the sealed secret.
// Must only be called after CanMutate returns nil.
func (u *UMID) ApplySecurity(settings SecuritySettings, now time.Time) {
	settings.SealedSecret = u.Security.SealedSecret
	u.Security = settings
	u.touch(now)
}

// CanDeactivate checks if the UMID can transition to deactivated.
func (u *UMID) CanDeactivate() error {
	if !u.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "umid is already deactivated")
	}
	return nil
}

// ApplyDeactivation transitions the UMID to deactivated.
// Must only be called after CanDeactivate returns nil.
func (u *UMID) ApplyDeactivation(now time.Time) {
	u.IsActive = false
	u.DeactivatedAt = &now
	u.touch(now)
}

func (u *UMID) touch(now time.Time) {
	u.Version++
	u.UpdatedAt = now
}

// Clone returns a deep copy.
func (u *UMID) Clone() *UMID {
	if u == nil {
		return nil
	}
	c := *u
	c.LinkedData.Data = u.LinkedData.Data.Clone()
	c.Security = u.Security.Clone()
	if u.AccessHistory != nil {
		c.AccessHistory = append([]id.AccessLogID(nil), u.AccessHistory...)
	}
	if u.DeactivatedAt != nil {
		t := *u.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}

// Redacted returns a deep copy with the sealed secret cleared.
func (u *UMID) Redacted() *UMID {
	c := u.Clone()
	if c != nil {
		c.Security.SealedSecret = nil
	}
	return c
}

// SecretAAD binds a sealed secret to the UMID it was issued for, so a sealed
// value copied onto another record fails to open.
func SecretAAD(umidID id.UMIDID) []byte {
	return []byte("umid:" + umidID.String())
}
