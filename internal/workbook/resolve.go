package workbook

import (
	"fmt"
	"strings"
)

// Role names the record set a sheet is expected to hold.
type Role string

const (
	RolePatient   Role = "patient"
	RoleDiagnosis Role = "diagnosis"
)

var (
	// PatientKeywords are matched against lowercased sheet names to find patient demographics.
	PatientKeywords = []string{"patient", "patients", "patient_details"}
	// DiagnosisKeywords are matched against lowercased sheet names to find diagnosis events.
	DiagnosisKeywords = []string{"diagnosis", "diagnoses", "diagnosis_details", "diag"}
)

// DefaultKeywords returns the keyword list for a role.
func DefaultKeywords(r Role) []string {
	if r == RoleDiagnosis {
		return DiagnosisKeywords
	}
	return PatientKeywords
}

// SheetNotFoundError indicates no sheet matched the keywords for a role.
type SheetNotFoundError struct {
	Role      Role
	Requested string
	Keywords  []string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	if e.Requested != "" {
		return fmt.Sprintf("%s sheet %q not found; available sheets: %s",
			e.Role, e.Requested, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("could not find %s data sheet; expected a sheet name containing one of %q; available sheets: %s",
		e.Role, e.Keywords, strings.Join(e.Available, ", "))
}

// Resolve returns the first sheet, in workbook order, whose lowercased name contains any keyword.
func Resolve(sheets []string, role Role, keywords []string) (string, error) {
	if len(keywords) == 0 {
		keywords = DefaultKeywords(role)
	}
	for _, s := range sheets {
		lower := strings.ToLower(s)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return s, nil
			}
		}
	}
	return "", &SheetNotFoundError{Role: role, Keywords: keywords, Available: sheets}
}

// Select honours an explicit sheet name when given, falling back to keyword resolution.
func Select(sheets []string, role Role, explicit string, keywords []string) (string, error) {
	if explicit == "" {
		return Resolve(sheets, role, keywords)
	}
	for _, s := range sheets {
		if strings.EqualFold(s, explicit) {
			return s, nil
		}
	}
	return "", &SheetNotFoundError{Role: role, Requested: explicit, Available: sheets}
}
