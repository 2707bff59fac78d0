package access

import (
	"umid/internal/accesslog"
	"umid/internal/totp"
	"umid/internal/umid/models"
	id "umid/pkg/domain"
)

// Grant is the field scope a verified accessor receives and the rule that produced it.
type Grant struct {
	Fields []models.Field
	Basis  accesslog.GrantBasis
}

// EvaluateGrant applies the projection rules for a verified accessor.
// This is pure domain logic - no I/O, no side effects.
//
// Rule priority:
//  1. Role listed in AllowedRoles: exactly that subset. An empty subset is an
//     explicit deny of data and is never widened by the emergency override.
//  2. Role not listed, override on: the fixed emergency subset.
//  3. Otherwise: verified, no data.
func EvaluateGrant(settings models.SecuritySettings, role id.Role) Grant {
	if fields, listed := settings.AllowedRoles[role]; listed {
		if len(fields) == 0 {
			return Grant{Fields: []models.Field{}, Basis: accesslog.GrantExplicitEmpty}
		}
		return Grant{Fields: append([]models.Field{}, fields...), Basis: accesslog.GrantRole}
	}
	if settings.EmergencyOverride {
		return Grant{Fields: append([]models.Field{}, models.EmergencyFields...), Basis: accesslog.GrantEmergencyOverride}
	}
	return Grant{Fields: []models.Field{}, Basis: accesslog.GrantRoleNotPermitted}
}

// outcomeFor maps a grant to the caller-visible outcome.
func outcomeFor(basis accesslog.GrantBasis) Outcome {
	switch basis {
	case accesslog.GrantRole, accesslog.GrantEmergencyOverride:
		return OutcomeGranted
	case accesslog.GrantExplicitEmpty:
		return OutcomeGrantedEmpty
	default:
		return OutcomeRoleNotPermitted
	}
}

// failureFor maps a failed code check to the logged reason.
func failureFor(o totp.Outcome) accesslog.FailureReason {
	switch o {
	case totp.OutcomeMalformed:
		return accesslog.ReasonMalformedCode
	case totp.OutcomeExpired:
		return accesslog.ReasonExpiredCode
	default:
		return accesslog.ReasonInvalidCode
	}
}
