package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/classify"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order. Month-first slashed dates win over day-first ones,
// so "03/04/2024" is March 4.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// maxExcelSerial is the serial of 9999-12-31.
const maxExcelSerial = 2958465

// Whole numbers in this range read as a bare year, not a serial, and are rejected.
const (
	minYearLike = 1900
	maxYearLike = 2100
)

// Dates coerces a column to time.Time. Unparseable cells become null and count as failures.
func Dates(col *table.Column, opt Options) ColumnReport {
	rep := ColumnReport{Column: col.Name, Role: classify.Date}
	for i, v := range col.Values {
		if table.IsNull(v) {
			col.Values[i] = nil
			continue
		}
		rep.NonNull++
		t, ok := DateValue(v, opt.DateLayouts...)
		if !ok {
			rep.Failed++
			col.Values[i] = nil
			continue
		}
		col.Values[i] = t
	}
	return rep
}

// DateValue parses one cell as a date. Numbers are Excel serial dates, except whole
// numbers that look like a year; strings are tried against the built-in layouts, then extra.
func DateValue(v table.Value, extra ...string) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case int64:
		return serialDate(float64(x))
	case int:
		return serialDate(float64(x))
	case float64:
		return serialDate(x)
	case string:
		return parseDate(strings.TrimSpace(x), extra)
	}
	return time.Time{}, false
}

func parseDate(s string, extra []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	for _, l := range extra {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	// serial numbers stored as text
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialDate(f)
	}
	return time.Time{}, false
}

func serialDate(f float64) (time.Time, bool) {
	if f <= 0 || f > maxExcelSerial || f != f {
		return time.Time{}, false
	}
	if f == math.Trunc(f) && f >= minYearLike && f <= maxYearLike {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
