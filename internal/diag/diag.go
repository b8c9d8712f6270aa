// Package diag defines structured diagnostic records emitted while ingesting a workbook.
package diag

import "fmt"

// Kind classifies a diagnostic.
type Kind string

const (
	KindColumnRenamed      Kind = "column_renamed"
	KindHeaderCollision    Kind = "header_collision"
	KindDroppedEmpty       Kind = "dropped_empty"
	KindNullIdentifier     Kind = "null_identifier_dropped"
	KindTypeCoercion       Kind = "type_coercion_failure"
	KindOutOfRange         Kind = "out_of_range"
	KindDateParse          Kind = "date_parse_failure"
	KindGenderMapping      Kind = "gender_mapping"
	KindDuplicatePatients  Kind = "duplicate_patients_dropped"
	KindJoinFanOut         Kind = "join_fan_out"
	KindMergeStats         Kind = "merge_stats"
	KindValidationWarning  Kind = "validation_warning"
	KindSheetResolved      Kind = "sheet_resolved"
	KindRoleClassification Kind = "role_classification"
)

// Diagnostic is one observation about the data. Count is the number of cells or rows affected, when meaningful.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Table   string `json:"table,omitempty"`
	Column  string `json:"column,omitempty"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

func (d Diagnostic) String() string {
	loc := d.Table
	if d.Column != "" {
		loc = fmt.Sprintf("%s.%s", d.Table, d.Column)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", d.Stage, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Stage, loc, d.Message)
}

// Log collects diagnostics in emission order.
type Log struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (l *Log) Add(d Diagnostic) { l.items = append(l.items, d) }

// Items returns the collected diagnostics.
func (l *Log) Items() []Diagnostic { return l.items }

// Count sums Count over diagnostics of the given kind.
func Count(items []Diagnostic, kind Kind) int {
	n := 0
	for _, d := range items {
		if d.Kind == kind {
			n += d.Count
		}
	}
	return n
}
