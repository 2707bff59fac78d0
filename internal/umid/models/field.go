package models

import (
	"sort"

	dErrors "umid/pkg/domain-errors"
)

// Field names one grantable item of linked medical data.
type Field string

const (
	FieldFullName           Field = "fullName"
	FieldDateOfBirth        Field = "dateOfBirth"
	FieldBloodType          Field = "bloodType"
	FieldAllergies          Field = "allergies"
	FieldChronicConditions  Field = "chronicConditions"
	FieldMedications        Field = "medications"
	FieldEmergencyContacts  Field = "emergencyContacts"
	FieldOrganDonor         Field = "organDonor"
	FieldPrimaryPhysician   Field = "primaryPhysician"
	FieldPreferredLanguage  Field = "preferredLanguage"
	FieldAccessibilityNeeds Field = "accessibilityNeeds"
	FieldInsuranceProvider  Field = "insuranceProvider"
)

// Section groups fields for presentation. Security and activity carry no
// grantable fields: they describe settings and access history.
type Section string

const (
	SectionPersonal      Section = "personal"
	SectionContact       Section = "contact"
	SectionMedical       Section = "medical"
	SectionSecurity      Section = "security"
	SectionAccessibility Section = "accessibility"
	SectionPreferences   Section = "preferences"
	SectionActivity      Section = "activity"
)

// fieldSections is the single source of truth for valid fields and their section.
var fieldSections = map[Field]Section{
	FieldFullName:           SectionPersonal,
	FieldDateOfBirth:        SectionPersonal,
	FieldInsuranceProvider:  SectionPersonal,
	FieldEmergencyContacts:  SectionContact,
	FieldPrimaryPhysician:   SectionContact,
	FieldBloodType:          SectionMedical,
	FieldAllergies:          SectionMedical,
	FieldChronicConditions:  SectionMedical,
	FieldMedications:        SectionMedical,
	FieldOrganDonor:         SectionMedical,
	FieldAccessibilityNeeds: SectionAccessibility,
	FieldPreferredLanguage:  SectionPreferences,
}

// EmergencyFields is the fixed subset released under emergency override.
var EmergencyFields = []Field{FieldBloodType, FieldAllergies, FieldEmergencyContacts}

func (f Field) IsValid() bool {
	_, ok := fieldSections[f]
	return ok
}

// Section returns the section the field belongs to.
func (f Field) Section() Section {
	return fieldSections[f]
}

// ParseField constructs a Field from external input.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !f.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown field: "+s)
	}
	return f, nil
}

// AllFields returns every grantable field in a stable order.
func AllFields() []Field {
	out := make([]Field, 0, len(fieldSections))
	for f := range fieldSections {
		out = append(out, f)
	}
	SortFields(out)
	return out
}

// SortFields orders fields by section then name.
func SortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool {
		si, sj := fields[i].Section(), fields[j].Section()
		if si != sj {
			return si < sj
		}
		return fields[i] < fields[j]
	})
}

// NormalizeFields validates, dedupes and sorts a field list.
// A nil input stays nil; an empty input stays empty (explicit deny).
func NormalizeFields(in []Field) ([]Field, error) {
	if in == nil {
		return nil, nil
	}
	seen := make(map[Field]struct{}, len(in))
	out := make([]Field, 0, len(in))
	for _, f := range in {
		if !f.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown field: "+string(f))
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	SortFields(out)
	return out, nil
}

// Projection is granted data grouped by section.
type Projection map[Section]map[Field]any

// Fields lists the projected fields in stable order.
func (p Projection) Fields() []Field {
	var out []Field
	for _, fields := range p {
		for f := range fields {
			out = append(out, f)
		}
	}
	SortFields(out)
	return out
}
