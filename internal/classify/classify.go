// Package classify tags table columns with semantic roles using name heuristics.
package classify

import (
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// Role is the semantic category of a column.
type Role string

const (
	Identifier   Role = "IDENTIFIER"
	Age          Role = "AGE"
	Gender       Role = "GENDER"
	Date         Role = "DATE"
	Diagnosis    Role = "DIAGNOSIS"
	Department   Role = "DEPARTMENT"
	Unclassified Role = "UNCLASSIFIED"
)

var (
	dateKeywords       = []string{"DATE", "TIME", "CREATED", "UPDATED", "ADMISSION", "DISCHARGE"}
	genderKeywords     = []string{"GENDER", "SEX"}
	diagnosisKeywords  = []string{"DIAGNOSIS", "CONDITION"}
	departmentKeywords = []string{"DEPT", "DEPARTMENT"}
)

// ColumnRole pairs a column with its role.
type ColumnRole struct {
	Column string
	Role   Role
}

// RoleMap holds the role of every column, in table column order.
type RoleMap []ColumnRole

// Role returns the role of a column; Unclassified when unknown.
func (m RoleMap) Role(column string) Role {
	for _, cr := range m {
		if cr.Column == column {
			return cr.Role
		}
	}
	return Unclassified
}

// Columns lists the columns holding a role, in table order.
func (m RoleMap) Columns(r Role) []string {
	var out []string
	for _, cr := range m {
		if cr.Role == r {
			out = append(out, cr.Column)
		}
	}
	return out
}

// First returns the first column holding a role.
func (m RoleMap) First(r Role) (string, bool) {
	for _, cr := range m {
		if cr.Role == r {
			return cr.Column, true
		}
	}
	return "", false
}

// Has reports whether any column holds the role.
func (m RoleMap) Has(r Role) bool {
	_, ok := m.First(r)
	return ok
}

// Roles classifies the columns of t. It does not modify the table.
//
// Each column receives at most one role; when a name matches several, the
// precedence is identifier, age, gender, date, diagnosis, department.
// A trailing join side tag (_DIAG, _PATIENT) is ignored when matching.
func Roles(t *table.Table) RoleMap {
	names := t.Names()
	bases := make([]string, len(names))
	roles := make([]Role, len(names))
	for i, n := range names {
		bases[i] = strings.ToUpper(strings.TrimSpace(table.BaseName(n)))
		roles[i] = Unclassified
	}
	free := func(i int) bool { return roles[i] == Unclassified }

	for i, b := range bases {
		if b == table.IdentifierColumn {
			roles[i] = Identifier
		}
	}

	if i := pickAge(bases, free); i >= 0 {
		roles[i] = Age
	}

	if i := firstWhere(bases, free, func(b string) bool { return b == "GENDER" }); i >= 0 {
		roles[i] = Gender
	} else if i := firstWhere(bases, free, containsAny(genderKeywords)); i >= 0 {
		roles[i] = Gender
	}

	for i, b := range bases {
		if free(i) && containsAny(dateKeywords)(b) {
			roles[i] = Date
		}
	}
	for i, b := range bases {
		if free(i) && containsAny(diagnosisKeywords)(b) {
			roles[i] = Diagnosis
		}
	}
	if i := firstWhere(bases, free, containsAny(departmentKeywords)); i >= 0 {
		roles[i] = Department
	}

	m := make(RoleMap, len(names))
	for i, n := range names {
		m[i] = ColumnRole{Column: n, Role: roles[i]}
	}
	return m
}

// pickAge applies the age precedence: exact AGE, then a name ending in " AGE",
// then any name containing AGE that is not a TRIAGE column.
func pickAge(bases []string, free func(int) bool) int {
	if i := firstWhere(bases, free, func(b string) bool { return b == "AGE" }); i >= 0 {
		return i
	}
	if i := firstWhere(bases, free, func(b string) bool { return strings.HasSuffix(b, " AGE") }); i >= 0 {
		return i
	}
	return firstWhere(bases, free, func(b string) bool {
		return strings.Contains(b, "AGE") && !strings.Contains(b, "TRIAGE")
	})
}

func firstWhere(bases []string, free func(int) bool, match func(string) bool) int {
	for i, b := range bases {
		if free(i) && match(b) {
			return i
		}
	}
	return -1
}

func containsAny(keywords []string) func(string) bool {
	return func(s string) bool {
		for _, kw := range keywords {
			if strings.Contains(s, kw) {
				return true
			}
		}
		return false
	}
}
