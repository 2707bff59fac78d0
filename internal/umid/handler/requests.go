package handler

import (
	"strings"
	"time"

	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

// maxRoleEntries bounds the allowed_roles map in a request body.
const maxRoleEntries = 16

// IssueRequest is the HTTP request body for POST /umids.
// patient_id may be omitted when a patient issues for themselves.
type IssueRequest struct {
	PatientID         string              `json:"patient_id"`
	Data              models.MedicalData  `json:"data"`
	AllowedRoles      map[string][]string `json:"allowed_roles"`
	ToleranceSteps    *uint               `json:"tolerance_steps"`
	QRRotationSeconds *int                `json:"qr_rotation_seconds"`
	EmergencyOverride *bool               `json:"emergency_override"`

	// Parsed values (populated by Validate)
	parsedPatientID id.PatientID
	parsedRoles     map[id.Role][]models.Field
	parsedRotation  *time.Duration
}

// Validate implements httputil.Validatable.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if s := strings.TrimSpace(r.PatientID); s != "" {
		patientID, err := id.ParsePatientID(s)
		if err != nil {
			return err
		}
		r.parsedPatientID = patientID
	}
	roles, err := parseAllowedRoles(r.AllowedRoles)
	if err != nil {
		return err
	}
	r.parsedRoles = roles
	r.parsedRotation, err = parseRotation(r.QRRotationSeconds)
	return err
}

// UpdateLinkedDataRequest is the HTTP request body for PATCH /umids/{umidID}/linked-data.
// Absent fields are left unchanged.
type UpdateLinkedDataRequest struct {
	models.MedicalDataUpdate
}

// Validate implements httputil.Validatable.
func (r *UpdateLinkedDataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// UpdateSecurityRequest is the HTTP request body for PATCH /umids/{umidID}/security.
// A present allowed_roles replaces the whole mapping.
type UpdateSecurityRequest struct {
	AllowedRoles      map[string][]string `json:"allowed_roles"`
	ToleranceSteps    *uint               `json:"tolerance_steps"`
	QRRotationSeconds *int                `json:"qr_rotation_seconds"`
	EmergencyOverride *bool               `json:"emergency_override"`

	parsed models.SecurityUpdate
}

// Validate implements httputil.Validatable.
func (r *UpdateSecurityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	roles, err := parseAllowedRoles(r.AllowedRoles)
	if err != nil {
		return err
	}
	rotation, err := parseRotation(r.QRRotationSeconds)
	if err != nil {
		return err
	}
	r.parsed = models.SecurityUpdate{
		ToleranceSteps:    r.ToleranceSteps,
		QRRotation:        rotation,
		AllowedRoles:      roles,
		EmergencyOverride: r.EmergencyOverride,
	}
	return nil
}

func parseAllowedRoles(in map[string][]string) (map[id.Role][]models.Field, error) {
	if in == nil {
		return nil, nil
	}
	if len(in) > maxRoleEntries {
		return nil, dErrors.New(dErrors.CodeValidation, "too many allowed_roles entries")
	}
	out := make(map[id.Role][]models.Field, len(in))
	for rawRole, rawFields := range in {
		role, err := id.ParseRole(rawRole)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unknown role: "+rawRole)
		}
		fields := make([]models.Field, 0, len(rawFields))
		for _, raw := range rawFields {
			f, err := models.ParseField(strings.TrimSpace(raw))
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		out[role] = fields
	}
	return out, nil
}

func parseRotation(seconds *int) (*time.Duration, error) {
	if seconds == nil {
		return nil, nil
	}
	if *seconds <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "qr_rotation_seconds must be positive")
	}
	d := time.Duration(*seconds) * time.Second
	return &d, nil
}
