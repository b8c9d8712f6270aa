package analysis

import (
	"fmt"
	"math"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// AgeGroup buckets an age into ten-year bands: 1-10, 11-20, ..., 81-90, 90+.
// Null or non-numeric ages are "Unknown".
func AgeGroup(v table.Value) string {
	var age float64
	switch x := v.(type) {
	case float64:
		age = x
	case int64:
		age = float64(x)
	case int:
		age = float64(x)
	default:
		return "Unknown"
	}
	if math.IsNaN(age) {
		return "Unknown"
	}
	a := int(age)
	if a > 90 {
		return "90+"
	}
	if a <= 10 {
		return "1-10"
	}
	lo := (a-1)/10*10 + 1
	return fmt.Sprintf("%d-%d", lo, lo+9)
}

// ValueCounts counts the non-null values of a column, most frequent first.
// Ties are ordered by value. A limit of 0 keeps all values.
func ValueCounts(c *table.Column, limit int) []CategoryCount {
	counts := map[string]int{}
	for _, v := range c.Values {
		if table.IsNull(v) {
			continue
		}
		counts[table.FormatValue(v)]++
	}
	return topCounts(counts, limit)
}

// FormatNumber abbreviates large counts with K, M and B suffixes.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// Columns groups column names by broad type.
type Columns struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Datetime    []string `json:"datetime"`
}

// ColumnInfo classifies the columns of t by the Go type of their values.
// Columns with no values are left out.
func ColumnInfo(t *table.Table) Columns {
	var out Columns
	for _, c := range t.Columns() {
		switch KindOf(c) {
		case KindNumeric:
			out.Numeric = append(out.Numeric, c.Name)
		case KindDatetime:
			out.Datetime = append(out.Datetime, c.Name)
		case KindCategorical, KindText:
			out.Categorical = append(out.Categorical, c.Name)
		}
	}
	return out
}
