package models

import id "umid/pkg/domain"

// Listing bounds for admin queries.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Filter narrows an administrative UMID listing. Zero values mean "any".
type Filter struct {
	IsActive  *bool
	PatientID *id.PatientID
	Limit     int
	Offset    int
}

// Normalized clamps paging to sane bounds.
func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether u passes the filter's predicates (paging excluded).
func (f Filter) Matches(u *UMID) bool {
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	if f.PatientID != nil && u.PatientID != *f.PatientID {
		return false
	}
	return true
}
