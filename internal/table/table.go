// Package table holds the in-memory tabular model shared by the ingestion pipeline:
// raw sheets as read from a workbook and the cleaned, column-typed tables derived from them.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// IdentifierColumn is the canonical join key name.
	IdentifierColumn = "REGISTRY ID"
	// DiagnosisSuffix tags diagnosis-side columns that collided during a join.
	DiagnosisSuffix = "_DIAG"
	// PatientSuffix tags patient-side columns that collided during a join.
	PatientSuffix = "_PATIENT"
)

// Value is a single cell. A nil Value is null.
type Value = any

// Column is a named, ordered sequence of cell values.
type Column struct {
	Name   string
	Values []Value
}

// Table is a rectangular set of uniquely named columns.
// All columns share the same length.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New returns an empty table with the given number of rows.
func New(rows int) *Table {
	return &Table{index: map[string]int{}, rows: rows}
}

// FromColumns builds a table from columns that must be equally long and uniquely named.
func FromColumns(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0].Values)
	}
	t := New(rows)
	for _, c := range cols {
		if err := t.AddColumn(c.Name, c.Values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned column is owned by the table.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Columns returns the table's columns in order.
func (t *Table) Columns() []*Column { return t.cols }

// Value returns the cell at row i of the named column, or nil if the column is absent.
func (t *Table) Value(i int, name string) Value {
	c, ok := t.Column(name)
	if !ok || i < 0 || i >= t.rows {
		return nil
	}
	return c.Values[i]
}

// AddColumn appends a column. The values slice is taken over by the table.
func (t *Table) AddColumn(name string, values []Value) error {
	if _, dup := t.index[name]; dup {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(t.cols) == 0 && t.rows == 0 {
		t.rows = len(values)
	}
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, &Column{Name: name, Values: values})
	return nil
}

// Rename changes a column name. Renaming onto an existing name is an error.
func (t *Table) Rename(from, to string) error {
	if from == to {
		return nil
	}
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("column %q not found", from)
	}
	if _, taken := t.index[to]; taken {
		return fmt.Errorf("cannot rename %q: column %q already exists", from, to)
	}
	delete(t.index, from)
	t.index[to] = i
	t.cols[i].Name = to
	return nil
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row position in its table.
func (r Row) Index() int { return r.i }

// Get returns the cell of the named column, nil when absent.
func (r Row) Get(name string) Value { return r.t.Value(r.i, name) }

// Values returns a copy of the row cells in column order.
func (r Row) Values() []Value {
	out := make([]Value, len(r.t.cols))
	for j, c := range r.t.cols {
		out[j] = c.Values[r.i]
	}
	return out
}

// Row returns the view for row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	out := New(len(rows))
	for _, c := range t.cols {
		vals := make([]Value, len(rows))
		for k, i := range rows {
			vals[k] = c.Values[i]
		}
		out.index[c.Name] = len(out.cols)
		out.cols = append(out.cols, &Column{Name: c.Name, Values: vals})
	}
	return out
}

// Filter returns a fresh table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	var rows []int
	for i := 0; i < t.rows; i++ {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, i)
		}
	}
	return t.Take(rows)
}

// Clone returns a deep copy of the table structure. Cell values are immutable scalars.
func (t *Table) Clone() *Table {
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// IsNull reports whether a cell is empty.
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case time.Time:
		return x.IsZero()
	}
	return false
}

// FormatValue renders a cell as text. Null renders as "".
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// BaseName strips a trailing join side tag from a column name.
func BaseName(name string) string {
	for _, sfx := range []string{DiagnosisSuffix, PatientSuffix} {
		if strings.HasSuffix(name, sfx) && len(name) > len(sfx) {
			return strings.TrimSuffix(name, sfx)
		}
	}
	return name
}
