package domain

import (
	"strings"

	dErrors "umid/pkg/domain-errors"
)

// Role is the caller role supplied by the identity provider.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleLabTech Role = "lab_tech"
	RoleAdmin   Role = "admin"
)

var validRoles = map[Role]bool{
	RolePatient: true,
	RoleDoctor:  true,
	RoleNurse:   true,
	RoleLabTech: true,
	RoleAdmin:   true,
}

// ParseRole constructs a Role from external input. Matching is case-insensitive.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsClinical reports whether the role belongs to a care provider.
func (r Role) IsClinical() bool {
	return r == RoleDoctor || r == RoleNurse || r == RoleLabTech
}

func (r Role) String() string {
	return string(r)
}
