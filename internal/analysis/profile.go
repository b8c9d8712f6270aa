// Package analysis profiles cleaned tables and builds the summary statistics shown
// to users: column kinds, numeric stats, top values, filters and the text report.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindText        Kind = "text"
	KindEmpty       Kind = "empty"
)

// Options controls profiling.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// TopValues limits the categorical top list.
	TopValues int
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for profiling.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 8, Outliers: true, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// KindOf infers the kind of one column from its values.
func KindOf(c *table.Column) Kind {
	return profileColumn(c, Options{}).Kind
}

// Kinds returns the inferred kind of every column, keyed by name.
func Kinds(t *table.Table) map[string]Kind {
	out := make(map[string]Kind, t.NumCols())
	for _, c := range t.Columns() {
		out[c.Name] = KindOf(c)
	}
	return out
}

// Profile summarizes every column of t.
func Profile(name string, t *table.Table, opt Options) *Report {
	rep := &Report{Name: name, Rows: t.NumRows()}
	for _, c := range t.Columns() {
		rep.Cols = append(rep.Cols, profileColumn(c, opt))
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < t.NumRows() && i < sampleRows; i++ {
		vals := t.Row(i).Values()
		row := make([]string, len(vals))
		for j, v := range vals {
			row[j] = table.FormatValue(v)
		}
		rep.Samples = append(rep.Samples, row)
	}
	for _, c := range rep.Cols {
		if c.Kind == KindEmpty {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", c.Name))
		}
	}
	return rep
}

func profileColumn(c *table.Column, opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: KindEmpty}
	var (
		n, numCnt, dtCnt, txtCnt int
		mean, m2                 float64
		minV, maxV               = math.Inf(1), math.Inf(-1)
		nums                     []float64
		cats                     = map[string]int{}
		exText                   []string
	)
	for _, v := range c.Values {
		if table.IsNull(v) {
			s.Missing++
			continue
		}
		s.NonNull++
		var x float64
		switch val := v.(type) {
		case int64:
			x = float64(val)
		case int:
			x = float64(val)
		case float64:
			x = val
		case time.Time:
			dtCnt++
			continue
		default:
			txt := strings.TrimSpace(table.FormatValue(v))
			if _, ok := parseTimeMaybe(txt); ok {
				dtCnt++
				continue
			}
			txtCnt++
			if len(cats) <= 10000 && len(txt) <= 64 {
				cats[txt]++
			}
			if len(exText) < 3 {
				exText = append(exText, txt)
			}
			continue
		}
		numCnt++
		// Welford update
		n++
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
		nums = append(nums, x)
	}

	switch {
	case numCnt >= dtCnt && numCnt >= txtCnt && numCnt > 0:
		s.Kind = KindNumeric
		s.Min, s.Max, s.Mean = minV, maxV, mean
		if n > 1 {
			s.Std = math.Sqrt(m2 / float64(n-1))
		}
		if opt.Outliers && len(nums) >= 8 {
			s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = outliers(nums, opt.OutlierThreshold)
		}
	case dtCnt >= txtCnt && dtCnt > 0:
		s.Kind = KindDatetime
	case len(cats) > 0:
		s.Kind = KindCategorical
		limit := opt.TopValues
		if limit <= 0 {
			limit = 8
		}
		s.TopValues = topCounts(cats, limit)
		s.Unique = len(cats)
	case txtCnt > 0:
		s.Kind = KindText
		s.ExampleTexts = exText
	}
	return s
}

func outliers(vals []float64, thr float64) (cnt int, maxAbsZ float64, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(vals)
	if mad > 0 {
		for _, v := range vals {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > thr {
				cnt++
			}
			if az > maxAbsZ {
				maxAbsZ = az
			}
		}
	}
	return cnt, maxAbsZ, thr
}

// topCounts orders counts by count descending, then value ascending, and keeps the first limit (0 keeps all).
func topCounts(counts map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if limit > 0 && len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Markdown renders a compact profile.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
			}
		case KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		case KindText:
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" — e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
