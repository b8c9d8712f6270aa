// Package normalize coerces classified columns into canonical values.
//
// Normalizers never fail: cells that cannot be coerced become null and are
// counted in the returned ColumnReport so callers can surface them as diagnostics.
package normalize

import (
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/classify"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options controls normalization bounds and formats.
type Options struct {
	// AgeMin and AgeMax bound plausible ages, inclusive.
	AgeMin float64
	AgeMax float64
	// DateLayouts are tried after the built-in layouts.
	DateLayouts []string
}

// DefaultOptions returns the standard age range [0, 150] and no extra date layouts.
func DefaultOptions() Options {
	return Options{AgeMin: 0, AgeMax: 150}
}

// ColumnReport summarizes what normalization did to one column.
type ColumnReport struct {
	Column string
	Role   classify.Role
	// NonNull is the number of non-null input cells.
	NonNull int
	// Failed counts cells that could not be coerced and became null.
	Failed int
	// OutOfRange counts numeric cells outside the accepted range that became null.
	OutOfRange int
	// Nulled counts placeholder values (such as "NAN") turned into null.
	Nulled int
	// Values counts normalized values, for categorical roles.
	Values map[string]int
}

// Apply normalizes every classified column of t in place, returning one report per touched column.
// A failure in one column never affects the others.
func Apply(t *table.Table, roles classify.RoleMap, opt Options) []ColumnReport {
	var reports []ColumnReport
	for _, cr := range roles {
		col, ok := t.Column(cr.Column)
		if !ok {
			continue
		}
		switch cr.Role {
		case classify.Age:
			reports = append(reports, Ages(col, opt))
		case classify.Gender:
			reports = append(reports, Genders(col))
		case classify.Date:
			reports = append(reports, Dates(col, opt))
		case classify.Diagnosis:
			reports = append(reports, Diagnoses(col))
		}
	}
	return reports
}

// Ages coerces a column to float64 ages, nulling non-numeric and out-of-range cells.
func Ages(col *table.Column, opt Options) ColumnReport {
	rep := ColumnReport{Column: col.Name, Role: classify.Age}
	for i, v := range col.Values {
		if table.IsNull(v) {
			col.Values[i] = nil
			continue
		}
		rep.NonNull++
		age, ok := AgeValue(v)
		if !ok {
			rep.Failed++
			col.Values[i] = nil
			continue
		}
		if age < opt.AgeMin || age > opt.AgeMax {
			rep.OutOfRange++
			col.Values[i] = nil
			continue
		}
		col.Values[i] = age
	}
	return rep
}

// AgeValue coerces a cell to a number.
func AgeValue(v table.Value) (float64, bool) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f != f {
		return 0, false
	}
	return f, true
}

var genderCodes = map[string]string{
	"1": "MALE", "1.0": "MALE",
	"2": "FEMALE", "2.0": "FEMALE",
	"3": "TRANSGENDER", "3.0": "TRANSGENDER",
	"M": "MALE", "MALE": "MALE", "MAN": "MALE",
	"F": "FEMALE", "FEMALE": "FEMALE", "WOMAN": "FEMALE",
	"T": "TRANSGENDER", "TRANSGENDER": "TRANSGENDER", "TRANS": "TRANSGENDER",
	"O": "OTHER", "OTHER": "OTHER", "OTHERS": "OTHER",
}

// Genders maps a column onto the canonical gender vocabulary. Unmapped values are kept, upper-cased.
func Genders(col *table.Column) ColumnReport {
	rep := ColumnReport{Column: col.Name, Role: classify.Gender, Values: map[string]int{}}
	upper := cases.Upper(language.Und)
	for i, v := range col.Values {
		if table.IsNull(v) {
			col.Values[i] = nil
			continue
		}
		rep.NonNull++
		g := genderValue(upper, v)
		col.Values[i] = g
		rep.Values[g]++
	}
	return rep
}

// GenderValue normalizes a single gender cell.
func GenderValue(v table.Value) string {
	return genderValue(cases.Upper(language.Und), v)
}

func genderValue(upper cases.Caser, v table.Value) string {
	s := upper.String(strings.TrimSpace(text(v)))
	if g, ok := genderCodes[s]; ok {
		return g
	}
	return s
}

// Diagnoses trims and upper-cases free-text diagnosis values. The literal "NAN" becomes null.
func Diagnoses(col *table.Column) ColumnReport {
	rep := ColumnReport{Column: col.Name, Role: classify.Diagnosis}
	upper := cases.Upper(language.Und)
	for i, v := range col.Values {
		if table.IsNull(v) {
			col.Values[i] = nil
			continue
		}
		rep.NonNull++
		s := upper.String(strings.TrimSpace(text(v)))
		if s == "NAN" || s == "" {
			rep.Nulled++
			col.Values[i] = nil
			continue
		}
		col.Values[i] = s
	}
	return rep
}

// text stringifies a cell; numbers print without trailing zeros.
func text(v table.Value) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return table.FormatValue(v)
	}
	return s
}
