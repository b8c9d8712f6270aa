// Package join merges the diagnosis and patient tables on the identifier column.
package join

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// ErrMissingKey is returned when either side lacks the identifier column.
var ErrMissingKey = errors.New("identifier column missing")

// Options controls the join.
type Options struct {
	// DedupePatients keeps only the first patient row per identifier, so every
	// diagnosis row yields exactly one merged row.
	DedupePatients bool
}

// DefaultOptions enables patient de-duplication.
func DefaultOptions() Options { return Options{DedupePatients: true} }

// MatchReport counts merged rows carrying at least one non-null patient field
// against all merged rows.
type MatchReport struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// Rate is Matched / Total, or 0 for an empty merged table.
func (m MatchReport) Rate() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Matched) / float64(m.Total)
}

// Result is the merged table with its statistics.
type Result struct {
	Table  *table.Table
	Report MatchReport
	// DuplicatesDropped is the number of patient rows removed by de-duplication.
	DuplicatesDropped int
	// FanOut is the number of merged rows beyond one per diagnosis row.
	FanOut int
	// Suffixed lists the base names of columns present on both sides.
	Suffixed []string
}

// EmptyJoinError is returned when no diagnosis row matched a patient.
type EmptyJoinError struct {
	DiagnosisRows int
	PatientRows   int
}

func (e *EmptyJoinError) Error() string {
	return fmt.Sprintf("no matching records between diagnosis (%d rows) and patient (%d rows) data; check that %q values correspond across sheets",
		e.DiagnosisRows, e.PatientRows, table.IdentifierColumn)
}

// Key returns the join key of a cell: its trimmed text. Null cells have no key.
func Key(v table.Value) (string, bool) {
	if table.IsNull(v) {
		return "", false
	}
	return strings.TrimSpace(table.FormatValue(v)), true
}

// DedupeFirst keeps the first row of each identifier. Rows without an identifier are kept.
func DedupeFirst(t *table.Table) (*table.Table, int) {
	seen := map[string]bool{}
	dropped := 0
	out := t.Filter(func(r table.Row) bool {
		k, ok := Key(r.Get(table.IdentifierColumn))
		if !ok {
			return true
		}
		if seen[k] {
			dropped++
			return false
		}
		seen[k] = true
		return true
	})
	return out, dropped
}

// Merge left-joins patient onto diagnosis by identifier. Diagnosis rows keep their
// order; a diagnosis row without a patient gets null patient fields. Non-key columns
// present on both sides are suffixed with table.DiagnosisSuffix and table.PatientSuffix.
// Neither input is modified.
func Merge(diagnosis, patient *table.Table, opt Options) (*Result, error) {
	if !diagnosis.Has(table.IdentifierColumn) {
		return nil, fmt.Errorf("diagnosis table: %w", ErrMissingKey)
	}
	if !patient.Has(table.IdentifierColumn) {
		return nil, fmt.Errorf("patient table: %w", ErrMissingKey)
	}

	res := &Result{}
	if opt.DedupePatients {
		patient, res.DuplicatesDropped = DedupeFirst(patient)
	}

	byKey := map[string][]int{}
	for i := 0; i < patient.NumRows(); i++ {
		if k, ok := Key(patient.Value(i, table.IdentifierColumn)); ok {
			byKey[k] = append(byKey[k], i)
		}
	}

	// pairs[n] = {diagnosis row, patient row or -1}
	var pairs [][2]int
	hits := 0
	for i := 0; i < diagnosis.NumRows(); i++ {
		k, ok := Key(diagnosis.Value(i, table.IdentifierColumn))
		matches := byKey[k]
		if !ok || len(matches) == 0 {
			pairs = append(pairs, [2]int{i, -1})
			continue
		}
		hits++
		for _, p := range matches {
			pairs = append(pairs, [2]int{i, p})
		}
	}
	if hits == 0 {
		return nil, &EmptyJoinError{DiagnosisRows: diagnosis.NumRows(), PatientRows: patient.NumRows()}
	}
	res.FanOut = len(pairs) - diagnosis.NumRows()

	out := table.New(len(pairs))
	for _, c := range diagnosis.Columns() {
		name := c.Name
		if name != table.IdentifierColumn && patient.Has(name) {
			name += table.DiagnosisSuffix
			res.Suffixed = append(res.Suffixed, c.Name)
		}
		vals := make([]table.Value, len(pairs))
		for n, p := range pairs {
			vals[n] = c.Values[p[0]]
		}
		if err := out.AddColumn(name, vals); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}
	for _, c := range patient.Columns() {
		if c.Name == table.IdentifierColumn {
			continue
		}
		name := c.Name
		if diagnosis.Has(name) {
			name += table.PatientSuffix
		}
		vals := make([]table.Value, len(pairs))
		for n, p := range pairs {
			if p[1] >= 0 {
				vals[n] = c.Values[p[1]]
			}
		}
		if err := out.AddColumn(name, vals); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}
	res.Table = out
	res.Report = matchReport(out, diagnosis, patient)
	return res, nil
}

// matchReport inspects the patient-side columns of the merged table. A matched
// patient row whose fields are all null counts as unmatched.
func matchReport(merged, diagnosis, patient *table.Table) MatchReport {
	var cols []string
	for _, name := range patient.Names() {
		if name == table.IdentifierColumn {
			continue
		}
		if diagnosis.Has(name) {
			name += table.PatientSuffix
		}
		cols = append(cols, name)
	}
	rep := MatchReport{Total: merged.NumRows()}
	for i := 0; i < merged.NumRows(); i++ {
		for _, c := range cols {
			if !table.IsNull(merged.Value(i, c)) {
				rep.Matched++
				break
			}
		}
	}
	rep.Unmatched = rep.Total - rep.Matched
	return rep
}
