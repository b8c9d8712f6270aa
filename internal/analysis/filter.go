package analysis

import (
	"strings"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/classify"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// Filter narrows a merged table. Zero-valued fields are ignored.
type Filter struct {
	Gender     string
	Department string
	MinAge     *float64
	MaxAge     *float64
	From       time.Time
	To         time.Time
}

// IsZero reports whether the filter keeps every row.
func (f Filter) IsZero() bool {
	return f.Gender == "" && f.Department == "" && f.MinAge == nil && f.MaxAge == nil && f.From.IsZero() && f.To.IsZero()
}

// Apply returns a fresh table with the rows that pass every set predicate. A predicate
// whose role is missing from t is skipped. Rows with a null value fail an active predicate.
func (f Filter) Apply(t *table.Table) *table.Table {
	if f.IsZero() {
		return t.Clone()
	}
	roles := classify.Roles(t)
	gender, hasGender := roles.First(classify.Gender)
	dept, hasDept := roles.First(classify.Department)
	age, hasAge := roles.First(classify.Age)
	date, hasDate := roles.First(classify.Date)

	return t.Filter(func(r table.Row) bool {
		if f.Gender != "" && hasGender {
			if !strings.EqualFold(table.FormatValue(r.Get(gender)), strings.TrimSpace(f.Gender)) {
				return false
			}
		}
		if f.Department != "" && hasDept {
			if !strings.EqualFold(strings.TrimSpace(table.FormatValue(r.Get(dept))), strings.TrimSpace(f.Department)) {
				return false
			}
		}
		if (f.MinAge != nil || f.MaxAge != nil) && hasAge {
			a, ok := r.Get(age).(float64)
			if !ok {
				return false
			}
			if f.MinAge != nil && a < *f.MinAge {
				return false
			}
			if f.MaxAge != nil && a > *f.MaxAge {
				return false
			}
		}
		if (!f.From.IsZero() || !f.To.IsZero()) && hasDate {
			d, ok := r.Get(date).(time.Time)
			if !ok {
				return false
			}
			if !f.From.IsZero() && d.Before(f.From) {
				return false
			}
			if !f.To.IsZero() && d.After(endOfDay(f.To)) {
				return false
			}
		}
		return true
	})
}

// endOfDay widens a date-only bound to include the whole day.
func endOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
