// Package export writes processed tables as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Sheet is one table destined for a workbook sheet.
type Sheet struct {
	Name  string
	Table *table.Table
}

// CSV writes a header row followed by one record per table row. Null cells are empty.
func CSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, v := range t.Row(i).Values() {
			rec[j] = table.FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX writes one sheet per table. Sheet names longer than 31 characters are truncated.
func XLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx export: no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	for n, s := range sheets {
		name := sheetName(s.Name, n)
		if n == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s.Table); err != nil {
			return err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, name string, t *table.Table) error {
	header := make([]any, t.NumCols())
	for j, n := range t.Names() {
		header[j] = n
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write sheet %q header: %w", name, err)
	}
	for i := 0; i < t.NumRows(); i++ {
		vals := t.Row(i).Values()
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write sheet %q row %d: %w", name, i+1, err)
		}
	}
	return nil
}

// cellValue maps table cells to values excelize stores natively. Dates are written as text
// so that they round-trip through the reader without a number format.
func cellValue(v table.Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return table.FormatValue(x)
	}
	return v
}

func sheetName(name string, n int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", n+1)
	}
	r := []rune(name)
	if len(r) > maxSheetName {
		r = r[:maxSheetName]
	}
	return string(r)
}
