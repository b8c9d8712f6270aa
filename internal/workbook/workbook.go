// Package workbook reads spreadsheet workbooks into raw sheets and resolves
// which sheet holds which record set.
package workbook

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/xuri/excelize/v2"
)

// Workbook is the set of sheets read from one file, in workbook order.
type Workbook struct {
	Name   string
	Sheets []table.RawSheet
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		out[i] = s.Name
	}
	return out
}

// Sheet returns the named sheet.
func (w *Workbook) Sheet(name string) (table.RawSheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return table.RawSheet{}, false
}

// CanRead reports whether the filename has a workbook extension this package understands.
func CanRead(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return true
	}
	return false
}

// ReadFile reads a workbook from disk.
func ReadFile(path string) (*Workbook, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := Read(b)
	if err != nil {
		return nil, err
	}
	wb.Name = filepath.Base(path)
	return wb, nil
}

// Read parses workbook bytes. Cells are read as raw values, so dates arrive
// as Excel serial numbers rather than display-formatted text.
func Read(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("open workbook: no sheets found")
	}
	wb := &Workbook{}
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, table.NewRawSheet(name, rows))
	}
	return wb, nil
}
