package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dErrors "umid/pkg/domain-errors"
	pstrings "umid/pkg/platform/strings"
)

// Bounds on linked data. Linked data is an emergency summary, not a record system.
const (
	MaxListItems         = 32
	MaxEmergencyContacts = 5
	MaxTextLength        = 256
)

var bloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// EmergencyContact is a person to call on the patient's behalf.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
}

// MedicalData is the bounded snapshot of data linked to a UMID.
type MedicalData struct {
	FullName           string             `json:"fullName,omitempty"`
	DateOfBirth        string             `json:"dateOfBirth,omitempty"`
	BloodType          string             `json:"bloodType,omitempty"`
	Allergies          []string           `json:"allergies,omitempty"`
	ChronicConditions  []string           `json:"chronicConditions,omitempty"`
	Medications        []string           `json:"medications,omitempty"`
	EmergencyContacts  []EmergencyContact `json:"emergencyContacts,omitempty"`
	OrganDonor         *bool              `json:"organDonor,omitempty"`
	PrimaryPhysician   string             `json:"primaryPhysician,omitempty"`
	PreferredLanguage  string             `json:"preferredLanguage,omitempty"`
	AccessibilityNeeds []string           `json:"accessibilityNeeds,omitempty"`
	InsuranceProvider  string             `json:"insuranceProvider,omitempty"`
}

// LinkedMedicalData is one immutable version of a UMID's linked data.
type LinkedMedicalData struct {
	Version    int         `json:"version"`
	Data       MedicalData `json:"data"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Normalize trims text and dedupes lists case-insensitively.
func (d *MedicalData) Normalize() {
	d.FullName = strings.TrimSpace(d.FullName)
	d.DateOfBirth = strings.TrimSpace(d.DateOfBirth)
	d.BloodType = strings.ToUpper(strings.TrimSpace(d.BloodType))
	d.PrimaryPhysician = strings.TrimSpace(d.PrimaryPhysician)
	d.PreferredLanguage = strings.TrimSpace(d.PreferredLanguage)
	d.InsuranceProvider = strings.TrimSpace(d.InsuranceProvider)
	d.Allergies = pstrings.DedupeAndTrimFold(d.Allergies)
	d.ChronicConditions = pstrings.DedupeAndTrimFold(d.ChronicConditions)
	d.Medications = pstrings.DedupeAndTrimFold(d.Medications)
	d.AccessibilityNeeds = pstrings.DedupeAndTrimFold(d.AccessibilityNeeds)
	for i := range d.EmergencyContacts {
		c := &d.EmergencyContacts[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Relationship = strings.TrimSpace(c.Relationship)
		c.Phone = strings.TrimSpace(c.Phone)
	}
}

// Validate enforces the linked-data bounds. Call Normalize first.
func (d MedicalData) Validate() error {
	for name, v := range map[string]string{
		"fullName":          d.FullName,
		"primaryPhysician":  d.PrimaryPhysician,
		"preferredLanguage": d.PreferredLanguage,
		"insuranceProvider": d.InsuranceProvider,
	} {
		if len([]rune(v)) > MaxTextLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be at most %d characters", name, MaxTextLength))
		}
	}
	if d.DateOfBirth != "" {
		if _, err := time.Parse(time.DateOnly, d.DateOfBirth); err != nil {
			return dErrors.New(dErrors.CodeValidation, "dateOfBirth must be YYYY-MM-DD")
		}
	}
	if d.BloodType != "" && !bloodTypes[d.BloodType] {
		return dErrors.New(dErrors.CodeValidation, "bloodType is not recognised")
	}
	for name, list := range map[string][]string{
		"allergies":          d.Allergies,
		"chronicConditions":  d.ChronicConditions,
		"medications":        d.Medications,
		"accessibilityNeeds": d.AccessibilityNeeds,
	} {
		if len(list) > MaxListItems {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must have at most %d entries", name, MaxListItems))
		}
		if pstrings.LongestRuneCount(list) > MaxTextLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s entries must be at most %d characters", name, MaxTextLength))
		}
	}
	if len(d.EmergencyContacts) > MaxEmergencyContacts {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("emergencyContacts must have at most %d entries", MaxEmergencyContacts))
	}
	for _, c := range d.EmergencyContacts {
		if c.Name == "" || c.Phone == "" {
			return dErrors.New(dErrors.CodeValidation, "emergency contacts need a name and phone")
		}
		if pstrings.LongestRuneCount([]string{c.Name, c.Relationship, c.Phone}) > MaxTextLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("emergency contact values must be at most %d characters", MaxTextLength))
		}
	}
	return nil
}

// Value returns the value held for f, or nil when f is unset.
func (d MedicalData) Value(f Field) any {
	switch f {
	case FieldFullName:
		return nonEmpty(d.FullName)
	case FieldDateOfBirth:
		return nonEmpty(d.DateOfBirth)
	case FieldBloodType:
		return nonEmpty(d.BloodType)
	case FieldAllergies:
		return nonEmptyList(d.Allergies)
	case FieldChronicConditions:
		return nonEmptyList(d.ChronicConditions)
	case FieldMedications:
		return nonEmptyList(d.Medications)
	case FieldEmergencyContacts:
		if len(d.EmergencyContacts) == 0 {
			return nil
		}
		return append([]EmergencyContact(nil), d.EmergencyContacts...)
	case FieldOrganDonor:
		if d.OrganDonor == nil {
			return nil
		}
		return *d.OrganDonor
	case FieldPrimaryPhysician:
		return nonEmpty(d.PrimaryPhysician)
	case FieldPreferredLanguage:
		return nonEmpty(d.PreferredLanguage)
	case FieldAccessibilityNeeds:
		return nonEmptyList(d.AccessibilityNeeds)
	case FieldInsuranceProvider:
		return nonEmpty(d.InsuranceProvider)
	}
	return nil
}

// Project returns exactly the requested fields grouped by section.
// Unset fields are omitted; the granted scope still lists them.
func (d MedicalData) Project(fields []Field) Projection {
	out := Projection{}
	for _, f := range fields {
		v := d.Value(f)
		if v == nil {
			continue
		}
		sec := f.Section()
		if out[sec] == nil {
			out[sec] = map[Field]any{}
		}
		out[sec][f] = v
	}
	return out
}

// Clone returns a deep copy.
func (d MedicalData) Clone() MedicalData {
	c := d
	c.Allergies = cloneStrings(d.Allergies)
	c.ChronicConditions = cloneStrings(d.ChronicConditions)
	c.Medications = cloneStrings(d.Medications)
	c.AccessibilityNeeds = cloneStrings(d.AccessibilityNeeds)
	if d.EmergencyContacts != nil {
		c.EmergencyContacts = append([]EmergencyContact(nil), d.EmergencyContacts...)
	}
	if d.OrganDonor != nil {
		v := *d.OrganDonor
		c.OrganDonor = &v
	}
	return c
}

// MedicalDataUpdate is a partial update. Nil leaves a field unchanged; a
// pointer to the zero value clears it. On the wire, organDonor is cleared with
// an explicit null and left alone when absent.
type MedicalDataUpdate struct {
	FullName           *string             `json:"fullName,omitempty"`
	DateOfBirth        *string             `json:"dateOfBirth,omitempty"`
	BloodType          *string             `json:"bloodType,omitempty"`
	Allergies          *[]string           `json:"allergies,omitempty"`
	ChronicConditions  *[]string           `json:"chronicConditions,omitempty"`
	Medications        *[]string           `json:"medications,omitempty"`
	EmergencyContacts  *[]EmergencyContact `json:"emergencyContacts,omitempty"`
	OrganDonor         **bool              `json:"organDonor,omitempty"`
	PrimaryPhysician   *string             `json:"primaryPhysician,omitempty"`
	PreferredLanguage  *string             `json:"preferredLanguage,omitempty"`
	AccessibilityNeeds *[]string           `json:"accessibilityNeeds,omitempty"`
	InsuranceProvider  *string             `json:"insuranceProvider,omitempty"`
}

// UnmarshalJSON rejects unknown fields and records an explicit
// "organDonor": null, which the standard decoder cannot tell from absence.
func (u *MedicalDataUpdate) UnmarshalJSON(b []byte) error {
	type plain MedicalDataUpdate
	var p plain
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return err
	}
	if p.OrganDonor == nil {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return err
		}
		if raw, ok := fields["organDonor"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			var cleared *bool
			p.OrganDonor = &cleared
		}
	}
	*u = MedicalDataUpdate(p)
	return nil
}

// IsEmpty reports whether the update changes nothing.
func (u MedicalDataUpdate) IsEmpty() bool {
	return u == MedicalDataUpdate{}
}

// MergeInto returns base with the update applied, normalized and validated.
func (u MedicalDataUpdate) MergeInto(base MedicalData) (MedicalData, error) {
	out := base.Clone()
	setString(&out.FullName, u.FullName)
	setString(&out.DateOfBirth, u.DateOfBirth)
	setString(&out.BloodType, u.BloodType)
	setString(&out.PrimaryPhysician, u.PrimaryPhysician)
	setString(&out.PreferredLanguage, u.PreferredLanguage)
	setString(&out.InsuranceProvider, u.InsuranceProvider)
	setList(&out.Allergies, u.Allergies)
	setList(&out.ChronicConditions, u.ChronicConditions)
	setList(&out.Medications, u.Medications)
	setList(&out.AccessibilityNeeds, u.AccessibilityNeeds)
	if u.EmergencyContacts != nil {
		out.EmergencyContacts = append([]EmergencyContact(nil), (*u.EmergencyContacts)...)
	}
	if u.OrganDonor != nil {
		if *u.OrganDonor == nil {
			out.OrganDonor = nil
		} else {
			v := **u.OrganDonor
			out.OrganDonor = &v
		}
	}
	out.Normalize()
	if err := out.Validate(); err != nil {
		return MedicalData{}, err
	}
	return out, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src *[]string) {
	if src != nil {
		*dst = cloneStrings(*src)
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonEmptyList(l []string) any {
	if len(l) == 0 {
		return nil
	}
	return cloneStrings(l)
}
