// Package validate checks cleaned tables and reports data-quality facts about them.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// ErrMissingIdentifier marks a table without the identifier column.
var ErrMissingIdentifier = errors.New("missing identifier column")

// MissingIdentifierError names the table that lacks the identifier column.
type MissingIdentifierError struct {
	Table   string
	Columns []string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("%s table: missing required column %q; found columns: %s",
		e.Table, table.IdentifierColumn, strings.Join(e.Columns, ", "))
}

func (e *MissingIdentifierError) Unwrap() error { return ErrMissingIdentifier }

// Info holds data-quality facts. It is filled even for invalid tables.
type Info struct {
	Rows          int                      `json:"rows"`
	Columns       int                      `json:"columns"`
	Nulls         int                      `json:"nulls"`
	DuplicateRows int                      `json:"duplicate_rows"`
	DuplicateIDs  int                      `json:"duplicate_ids"`
	ColumnTypes   map[string]analysis.Kind `json:"column_types"`
}

// Result is the outcome of validating one table.
type Result struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Info     Info     `json:"info"`
}

// Table validates t. An empty table or a missing identifier column makes it invalid;
// repeated identifiers only produce a warning.
func Table(t *table.Table) Result {
	res := Result{IsValid: true, Info: Info{
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		ColumnTypes: analysis.Kinds(t),
	}}
	if t.NumRows() == 0 || t.NumCols() == 0 {
		res.IsValid = false
		res.Errors = append(res.Errors, "table is empty")
	}
	if !t.Has(table.IdentifierColumn) {
		res.IsValid = false
		res.Errors = append(res.Errors, fmt.Sprintf("missing required column %q", table.IdentifierColumn))
	}

	for _, c := range t.Columns() {
		for _, v := range c.Values {
			if table.IsNull(v) {
				res.Info.Nulls++
			}
		}
	}
	res.Info.DuplicateRows = duplicateRows(t)

	if id, ok := t.Column(table.IdentifierColumn); ok {
		seen := map[string]bool{}
		for _, v := range id.Values {
			if table.IsNull(v) {
				continue
			}
			k := table.FormatValue(v)
			if seen[k] {
				res.Info.DuplicateIDs++
			}
			seen[k] = true
		}
		if res.Info.DuplicateIDs > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("found %d duplicate %s values (expected for diagnosis data)", res.Info.DuplicateIDs, table.IdentifierColumn))
		}
	}
	return res
}

// Identifier returns a *MissingIdentifierError when t has no identifier column.
func Identifier(name string, t *table.Table) error {
	if t.Has(table.IdentifierColumn) {
		return nil
	}
	return &MissingIdentifierError{Table: name, Columns: t.Names()}
}

func duplicateRows(t *table.Table) int {
	seen := map[string]bool{}
	dups := 0
	for i := 0; i < t.NumRows(); i++ {
		vals := t.Row(i).Values()
		parts := make([]string, len(vals))
		for j, v := range vals {
			parts[j] = fmt.Sprintf("%T:%s", v, table.FormatValue(v))
		}
		k := strings.Join(parts, "\x1f")
		if seen[k] {
			dups++
		}
		seen[k] = true
	}
	return dups
}
