package classify

import (
	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// canonicalNames are the single-column roles that get a fixed column name.
var canonicalNames = map[Role]string{
	Age:    "AGE",
	Gender: "GENDER",
}

// Rename records a canonical rename applied by Canonicalize.
type Rename struct {
	Role Role
	From string
	To   string
}

// Canonicalize renames the selected age and gender columns of t to AGE and GENDER
// and returns the updated role map. It mutates t and must only be used on tables
// the caller owns.
func Canonicalize(t *table.Table, roles RoleMap) (RoleMap, []Rename) {
	out := make(RoleMap, len(roles))
	copy(out, roles)
	var renames []Rename
	for i, cr := range out {
		target, ok := canonicalNames[cr.Role]
		if !ok || cr.Column == target {
			continue
		}
		if err := t.Rename(cr.Column, target); err != nil {
			continue
		}
		renames = append(renames, Rename{Role: cr.Role, From: cr.Column, To: target})
		out[i].Column = target
	}
	return out, renames
}
