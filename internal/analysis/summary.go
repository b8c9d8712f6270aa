package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/classify"
	"github.com/NamanSharma89/HospitalInsights/internal/join"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
)

// SummaryInput is what Summarize reads. Merged is required; the other tables may be nil.
type SummaryInput struct {
	Patients  *table.Table
	Diagnoses *table.Table
	Merged    *table.Table
	Match     join.MatchReport
	// TopN limits the diagnosis frequency list; 0 means 10.
	TopN        int
	GeneratedAt time.Time
}

// AgeStats describes ages taken once per patient.
type AgeStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary holds the headline numbers of a run.
type Summary struct {
	GeneratedAt            time.Time       `json:"generated_at"`
	Patients               int             `json:"patients"`
	Diagnoses              int             `json:"diagnoses"`
	MergedRows             int             `json:"merged_rows"`
	DistinctPatients       int             `json:"distinct_patients"`
	AvgDiagnosesPerPatient float64         `json:"avg_diagnoses_per_patient"`
	MatchRate              float64         `json:"match_rate"`
	Gender                 []CategoryCount `json:"gender,omitempty"`
	Age                    *AgeStats       `json:"age,omitempty"`
	AgeGroups              []CategoryCount `json:"age_groups,omitempty"`
	DiagnosisColumn        string          `json:"diagnosis_column,omitempty"`
	TopDiagnoses           []CategoryCount `json:"top_diagnoses,omitempty"`
}

// Summarize computes overview counts, the gender breakdown, age statistics and the
// most frequent diagnoses. Demographics come from Patients (Merged when Patients is nil)
// and use the first non-null value per identifier, so percentages are shares of
// distinct patients.
func Summarize(in SummaryInput) Summary {
	s := Summary{GeneratedAt: in.GeneratedAt, MatchRate: in.Match.Rate()}
	if in.Patients != nil {
		s.Patients = in.Patients.NumRows()
	}
	if in.Diagnoses != nil {
		s.Diagnoses = in.Diagnoses.NumRows()
	}
	if s.Patients > 0 {
		s.AvgDiagnosesPerPatient = float64(s.Diagnoses) / float64(s.Patients)
	}
	m := in.Merged
	if m != nil {
		s.MergedRows = m.NumRows()
	}

	demo := in.Patients
	if demo == nil {
		demo = m
	}
	if demo != nil && demo.Has(table.IdentifierColumn) {
		s.DistinctPatients = len(perPatient(demo, table.IdentifierColumn))
		roles := classify.Roles(demo)
		if g, ok := roles.First(classify.Gender); ok {
			counts := map[string]int{}
			for _, v := range perPatient(demo, g) {
				if v != nil {
					counts[table.FormatValue(v)]++
				}
			}
			s.Gender = topCounts(counts, 0)
		}
		if a, ok := roles.First(classify.Age); ok {
			var ages []float64
			groups := map[string]int{}
			for _, v := range perPatient(demo, a) {
				switch x := v.(type) {
				case float64:
					ages = append(ages, x)
				case int64:
					ages = append(ages, float64(x))
				default:
					continue
				}
				groups[AgeGroup(v)]++
			}
			if len(ages) > 0 {
				s.Age = ageStats(ages)
				s.AgeGroups = orderAgeGroups(groups)
			}
		}
	}

	if m == nil {
		return s
	}
	if d, ok := classify.Roles(m).First(classify.Diagnosis); ok {
		top := in.TopN
		if top <= 0 {
			top = 10
		}
		c, _ := m.Column(d)
		s.DiagnosisColumn = d
		s.TopDiagnoses = ValueCounts(c, top)
	}
	return s
}

// orderAgeGroups lists the age bands youngest first.
func orderAgeGroups(groups map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(groups))
	for g, n := range groups {
		out = append(out, CategoryCount{Value: g, Count: n})
	}
	lower := func(g string) int {
		var lo int
		if _, err := fmt.Sscanf(g, "%d", &lo); err != nil {
			return math.MaxInt
		}
		return lo
	}
	sort.Slice(out, func(i, j int) bool { return lower(out[i].Value) < lower(out[j].Value) })
	return out
}

// perPatient returns, per identifier, the first non-null value of column (nil when all are null).
func perPatient(t *table.Table, column string) map[string]table.Value {
	out := map[string]table.Value{}
	for i := 0; i < t.NumRows(); i++ {
		k, ok := join.Key(t.Value(i, table.IdentifierColumn))
		if !ok {
			continue
		}
		v := t.Value(i, column)
		if table.IsNull(v) {
			v = nil
		}
		if prev, seen := out[k]; !seen || prev == nil {
			out[k] = v
		}
	}
	return out
}

func ageStats(ages []float64) *AgeStats {
	sorted := append([]float64(nil), ages...)
	sort.Float64s(sorted)
	st := &AgeStats{Count: len(sorted), Min: sorted[0], Max: sorted[len(sorted)-1], Median: quantile(sorted, 0.5)}
	// Welford mean
	for i, x := range sorted {
		st.Mean += (x - st.Mean) / float64(i+1)
	}
	return st
}

// GenderPercent returns the share of distinct patients with the given count.
// Age bands use the same denominator.
func (s Summary) GenderPercent(count int) float64 {
	if s.DistinctPatients == 0 {
		return 0
	}
	return float64(count) * 100 / float64(s.DistinctPatients)
}

// Text renders the plain-text summary report.
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString("HOSPITAL DATA SUMMARY REPORT\n")
	if !s.GeneratedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Generated on: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05")))
	}
	b.WriteString("\n[OVERVIEW]\n")
	b.WriteString(fmt.Sprintf("Total Patients: %d\n", s.Patients))
	b.WriteString(fmt.Sprintf("Total Diagnoses: %d\n", s.Diagnoses))
	b.WriteString(fmt.Sprintf("Merged Records: %d\n", s.MergedRows))
	b.WriteString(fmt.Sprintf("Average Diagnoses per Patient: %.2f\n", s.AvgDiagnosesPerPatient))
	b.WriteString(fmt.Sprintf("Match Rate: %.1f%%\n", s.MatchRate*100))

	if len(s.Gender) > 0 || s.Age != nil {
		b.WriteString("\n[PATIENT DEMOGRAPHICS]\n")
	}
	if len(s.Gender) > 0 {
		b.WriteString("Gender Distribution:\n")
		for _, g := range s.Gender {
			b.WriteString(fmt.Sprintf("  %s: %d (%.1f%%)\n", g.Value, g.Count, s.GenderPercent(g.Count)))
		}
	}
	if s.Age != nil {
		b.WriteString("Age Statistics:\n")
		b.WriteString(fmt.Sprintf("  Average Age: %.1f years\n", s.Age.Mean))
		b.WriteString(fmt.Sprintf("  Median Age: %.1f years\n", s.Age.Median))
		b.WriteString(fmt.Sprintf("  Age Range: %.0f - %.0f years\n", s.Age.Min, s.Age.Max))
		if len(s.AgeGroups) > 0 {
			b.WriteString("Age Distribution:\n")
			for _, g := range s.AgeGroups {
				b.WriteString(fmt.Sprintf("  %s: %d (%.1f%%)\n", g.Value, g.Count, s.GenderPercent(g.Count)))
			}
		}
	}
	if len(s.TopDiagnoses) > 0 {
		b.WriteString(fmt.Sprintf("\n[TOP %d DIAGNOSES]\n", len(s.TopDiagnoses)))
		for i, d := range s.TopDiagnoses {
			b.WriteString(fmt.Sprintf("%2d. %s: %d cases\n", i+1, d.Value, d.Count))
		}
	}
	return b.String()
}
