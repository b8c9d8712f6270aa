package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// identifierKeywords mark columns that can stand in for the identifier column.
var identifierKeywords = []string{"REGISTRY", "ID", "PATIENT_ID", "PATIENTID"}

// RawColumn is one sheet column as read from the workbook: header text and raw cell texts.
type RawColumn struct {
	Header string
	Cells  []string
}

// RawSheet is an ordered set of raw columns read from one workbook sheet.
type RawSheet struct {
	Name    string
	Columns []RawColumn
}

// NewRawSheet converts sheet rows (first row is the header) into column-major form.
// Ragged rows are padded with empty cells.
func NewRawSheet(name string, rows [][]string) RawSheet {
	rs := RawSheet{Name: name}
	if len(rows) == 0 {
		return rs
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	body := rows[1:]
	rs.Columns = make([]RawColumn, width)
	for j := 0; j < width; j++ {
		col := RawColumn{Cells: make([]string, len(body))}
		if j < len(rows[0]) {
			col.Header = rows[0][j]
		}
		for i, r := range body {
			if j < len(r) {
				col.Cells[i] = r[j]
			}
		}
		rs.Columns[j] = col
	}
	return rs
}

// CleanStats records what Clean changed.
type CleanStats struct {
	DroppedRows    int
	DroppedColumns int
	// Suffixed maps a deduplicated column name to the name it collided on.
	Suffixed map[string]string
	// IdentifierFrom is the original column renamed to IdentifierColumn, if any.
	IdentifierFrom string
}

// NormalizeName canonicalizes a header: NFKC, trimmed, upper case.
func NormalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(s)
	return cases.Upper(language.Und).String(s)
}

// Clean turns a raw sheet into a table: fully empty rows and columns are dropped,
// names are normalized and made unique, the identifier column is recognized,
// and each column gets a single value type.
func Clean(rs RawSheet) (*Table, CleanStats) {
	stats := CleanStats{Suffixed: map[string]string{}}

	var keepCols []int
	nrows := 0
	for j, c := range rs.Columns {
		if len(c.Cells) > nrows {
			nrows = len(c.Cells)
		}
		if !allEmpty(c.Cells) {
			keepCols = append(keepCols, j)
		}
	}
	stats.DroppedColumns = len(rs.Columns) - len(keepCols)

	var keepRows []int
	for i := 0; i < nrows; i++ {
		for _, j := range keepCols {
			if i < len(rs.Columns[j].Cells) && strings.TrimSpace(rs.Columns[j].Cells[i]) != "" {
				keepRows = append(keepRows, i)
				break
			}
		}
	}
	stats.DroppedRows = nrows - len(keepRows)

	names := make([]string, len(keepCols))
	seen := map[string]int{}
	for k, j := range keepCols {
		name := NormalizeName(rs.Columns[j].Header)
		if name == "" {
			name = fmt.Sprintf("UNNAMED: %d", j)
		}
		if n := seen[name]; n > 0 {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s_%d", base, n)
				if seen[name] == 0 {
					break
				}
			}
			seen[base] = n
			stats.Suffixed[name] = base
		}
		seen[name]++
		names[k] = name
	}

	if idx := identifierCandidate(names); idx >= 0 {
		stats.IdentifierFrom = names[idx]
		names[idx] = IdentifierColumn
	}

	t := New(len(keepRows))
	for k, j := range keepCols {
		cells := make([]string, len(keepRows))
		src := rs.Columns[j].Cells
		for r, i := range keepRows {
			if i < len(src) {
				cells[r] = src[i]
			}
		}
		values := inferColumn(cells)
		if names[k] == IdentifierColumn {
			values = textColumn(cells)
		}
		// names are unique by construction
		_ = t.AddColumn(names[k], values)
	}
	return t, stats
}

// identifierCandidate returns the position of the column to rename to IdentifierColumn, or -1.
func identifierCandidate(names []string) int {
	for _, n := range names {
		if n == IdentifierColumn {
			return -1
		}
	}
	for i, n := range names {
		for _, kw := range identifierKeywords {
			if strings.Contains(n, kw) {
				return i
			}
		}
	}
	return -1
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// inferColumn types a column: int64 if every non-empty cell is an integer,
// float64 if every one is numeric, string otherwise. A cell only counts as a number
// when formatting it back gives the same text, so "250.00", "1e3" or oversized
// integers keep the column textual.
func inferColumn(cells []string) []Value {
	allInt, allNum := true, true
	nonEmpty := 0
	for _, c := range cells {
		s := strings.TrimSpace(c)
		if s == "" {
			continue
		}
		nonEmpty++
		if _, ok := intLiteral(s); ok {
			continue
		}
		allInt = false
		if _, ok := numericLiteral(s); !ok {
			allNum = false
			break
		}
	}
	if nonEmpty == 0 || !allNum {
		return textColumn(cells)
	}
	out := make([]Value, len(cells))
	for i, c := range cells {
		s := strings.TrimSpace(c)
		if s == "" {
			continue
		}
		if allInt {
			out[i], _ = intLiteral(s)
		} else {
			out[i], _ = numericLiteral(s)
		}
	}
	return out
}

// textColumn keeps trimmed cell text; empty cells are null.
func textColumn(cells []string) []Value {
	out := make([]Value, len(cells))
	for i, c := range cells {
		if s := strings.TrimSpace(c); s != "" {
			out[i] = s
		}
	}
	return out
}

// intLiteral parses canonical base-10 integers. Zero-padded codes such as "007" are not numbers.
func intLiteral(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

// numericLiteral parses finite decimals that format back to exactly s.
func numericLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if strconv.FormatFloat(f, 'f', -1, 64) != s {
		return 0, false
	}
	return f, true
}
