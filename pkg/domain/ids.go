// Package domain holds the typed primitives shared across modules.
//
// IDs are distinct named UUID types so a PatientID can never be passed where a
// UMIDID is expected. Construct them from external input only through the
// Parse functions, which reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "umid/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated principal (patient, clinician or admin).
	UserID uuid.UUID
	// PatientID identifies the patient owning a UMID.
	PatientID uuid.UUID
	// UMIDID identifies a Universal Medical ID credential.
	UMIDID uuid.UUID
	// AccessLogID identifies one access attempt record.
	AccessLogID uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParsePatientID(s string) (PatientID, error) {
	u, err := parseUUID(s, "patient id")
	return PatientID(u), err
}

func ParseUMIDID(s string) (UMIDID, error) {
	u, err := parseUUID(s, "umid id")
	return UMIDID(u), err
}

func ParseAccessLogID(s string) (AccessLogID, error) {
	u, err := parseUUID(s, "access log id")
	return AccessLogID(u), err
}

func NewUMIDID() UMIDID           { return UMIDID(uuid.New()) }
func NewAccessLogID() AccessLogID { return AccessLogID(uuid.New()) }

func (i UserID) String() string      { return uuid.UUID(i).String() }
func (i PatientID) String() string   { return uuid.UUID(i).String() }
func (i UMIDID) String() string      { return uuid.UUID(i).String() }
func (i AccessLogID) String() string { return uuid.UUID(i).String() }

func (i UserID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i PatientID) IsNil() bool   { return uuid.UUID(i) == uuid.Nil }
func (i UMIDID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i AccessLogID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

// AsPatient reinterprets an authenticated user as the patient they act for.
func (i UserID) AsPatient() PatientID { return PatientID(i) }

func (i UserID) MarshalText() ([]byte, error)      { return uuid.UUID(i).MarshalText() }
func (i PatientID) MarshalText() ([]byte, error)   { return uuid.UUID(i).MarshalText() }
func (i UMIDID) MarshalText() ([]byte, error)      { return uuid.UUID(i).MarshalText() }
func (i AccessLogID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }

func (i *UserID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *PatientID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *UMIDID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(i).UnmarshalText(b) }
func (i *AccessLogID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }
