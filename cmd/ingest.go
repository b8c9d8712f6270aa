package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	"github.com/NamanSharma89/HospitalInsights/internal/diag"
	"github.com/NamanSharma89/HospitalInsights/internal/join"
	"github.com/NamanSharma89/HospitalInsights/internal/normalize"
	"github.com/NamanSharma89/HospitalInsights/internal/pipeline"
	"github.com/NamanSharma89/HospitalInsights/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	ingFlags       runFlags
	ingReport      bool
	ingJSON        bool
	ingProfile     bool
	ingDiagnostics bool
	ingGender      string
	ingDepartment  string
	ingMinAge      float64
	ingMaxAge      float64
	ingFrom        string
	ingTo          string
)

// ingestReport is the --json document.
type ingestReport struct {
	RunID             string               `json:"run_id"`
	Source            string               `json:"source"`
	PatientSheet      string               `json:"patient_sheet"`
	DiagnosisSheet    string               `json:"diagnosis_sheet"`
	Match             join.MatchReport     `json:"match"`
	DuplicatesDropped int                  `json:"duplicates_dropped"`
	FanOut            int                  `json:"fan_out,omitempty"`
	FilteredRows      *int                 `json:"filtered_rows,omitempty"`
	Summary           analysis.Summary     `json:"summary"`
	Validation        pipeline.Validations `json:"validation"`
	Diagnostics       []diag.Diagnostic    `json:"diagnostics"`
	Columns           analysis.Columns     `json:"columns"`
	Exported          []string             `json:"exported,omitempty"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Clean, normalize and join the patient and diagnosis sheets of a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		opts := ingFlags.options(cmd, c)
		dir, format, err := ingFlags.exportTarget(c)
		if err != nil {
			return err
		}
		filter, err := ingestFilter(cmd, c.DateLayouts)
		if err != nil {
			return err
		}
		logger, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		reg := prometheus.NewRegistry()
		p := pipeline.New(opts, logger, pipeline.NewMetrics(reg))
		res, err := p.ProcessFile(args[0])
		if mErr := writeMetrics(ingFlags.metricsFile, reg); mErr != nil && err == nil {
			err = mErr
		}
		if err != nil {
			return err
		}

		now := time.Now()
		merged := res.Merged
		summary := res.Summary
		var filtered *int
		if !filter.IsZero() {
			merged = filter.Apply(res.Merged)
			summary = summarize(res, merged, opts.TopDiagnoses, now)
			n := merged.NumRows()
			filtered = &n
		}

		var exported []string
		if dir != "" {
			exported, err = exportResult(res, merged, summary, dir, format, now)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if ingJSON {
			b, err := utils.PrettyJSON(ingestReport{
				RunID:             res.RunID,
				Source:            res.Source,
				PatientSheet:      res.PatientSheet,
				DiagnosisSheet:    res.DiagnosisSheet,
				Match:             res.Match,
				DuplicatesDropped: res.DuplicatesDropped,
				FanOut:            res.FanOut,
				FilteredRows:      filtered,
				Summary:           summary,
				Validation:        res.Validation,
				Diagnostics:       res.Diagnostics,
				Columns:           analysis.ColumnInfo(merged),
				Exported:          exported,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		fmt.Fprintf(out, "✓ Processed %s (patients: %q, diagnoses: %q)\n", args[0], res.PatientSheet, res.DiagnosisSheet)
		fmt.Fprintf(out, "  Patients: %s  Diagnoses: %s  Merged: %s  Matched: %d/%d (%.1f%%)\n",
			analysis.FormatNumber(res.Patients.NumRows()), analysis.FormatNumber(res.Diagnoses.NumRows()),
			analysis.FormatNumber(res.Merged.NumRows()), res.Match.Matched, res.Match.Total, res.Match.Rate()*100)
		if res.DuplicatesDropped > 0 {
			fmt.Fprintf(out, "  Duplicate patient rows dropped: %d\n", res.DuplicatesDropped)
		}
		if res.FanOut > 0 {
			fmt.Fprintf(out, "⚠ Join fan-out: %d extra merged rows from repeated patient identifiers\n", res.FanOut)
		}
		if filtered != nil {
			fmt.Fprintf(out, "  Filtered rows: %d of %d\n", *filtered, res.Merged.NumRows())
		}
		printDiagnostics(out, res.Diagnostics, ingDiagnostics)
		if ingReport {
			fmt.Fprintln(out)
			fmt.Fprint(out, summary.Text())
		}
		if ingProfile {
			fmt.Fprintln(out)
			fmt.Fprint(out, analysis.Profile("merged", merged, analysis.DefaultOptions()).Markdown())
		}
		for _, path := range exported {
			fmt.Fprintf(out, "✓ Exported %s\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingFlags.register(ingestCmd)
	f := ingestCmd.Flags()
	f.BoolVar(&ingReport, "report", false, "print the summary report")
	f.BoolVar(&ingJSON, "json", false, "print the run as JSON")
	f.BoolVar(&ingProfile, "profile", false, "print a column profile of the merged table")
	f.BoolVar(&ingDiagnostics, "diagnostics", false, "list every diagnostic instead of a per-kind count")
	f.StringVar(&ingGender, "gender", "", "keep merged rows with this gender (M/F/MALE/FEMALE)")
	f.StringVar(&ingDepartment, "department", "", "keep merged rows from this department")
	f.Float64Var(&ingMinAge, "min-age", 0, "keep merged rows with age >= value")
	f.Float64Var(&ingMaxAge, "max-age", 0, "keep merged rows with age <= value")
	f.StringVar(&ingFrom, "from", "", "keep merged rows dated on or after this date")
	f.StringVar(&ingTo, "to", "", "keep merged rows dated on or before this date")
}

// ingestFilter builds the merged-table filter from the flags that were set.
func ingestFilter(cmd *cobra.Command, layouts []string) (analysis.Filter, error) {
	var f analysis.Filter
	if ingGender != "" {
		f.Gender = normalize.GenderValue(ingGender)
	}
	f.Department = ingDepartment
	if cmd.Flags().Changed("min-age") {
		v := ingMinAge
		f.MinAge = &v
	}
	if cmd.Flags().Changed("max-age") {
		v := ingMaxAge
		f.MaxAge = &v
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return f, fmt.Errorf("--min-age %.0f is greater than --max-age %.0f", *f.MinAge, *f.MaxAge)
	}
	var ok bool
	if ingFrom != "" {
		if f.From, ok = normalize.DateValue(ingFrom, layouts...); !ok {
			return f, fmt.Errorf("invalid --from date: %s", ingFrom)
		}
	}
	if ingTo != "" {
		if f.To, ok = normalize.DateValue(ingTo, layouts...); !ok {
			return f, fmt.Errorf("invalid --to date: %s", ingTo)
		}
	}
	return f, nil
}

// printDiagnostics lists each diagnostic, or a count per kind when all is false.
func printDiagnostics(out io.Writer, items []diag.Diagnostic, all bool) {
	if len(items) == 0 {
		return
	}
	if all {
		fmt.Fprintln(out, "Diagnostics:")
		for _, d := range items {
			fmt.Fprintf(out, "  - %s\n", d)
		}
		return
	}
	var order []diag.Kind
	records := map[diag.Kind]int{}
	for _, d := range items {
		if records[d.Kind] == 0 {
			order = append(order, d.Kind)
		}
		records[d.Kind]++
	}
	fmt.Fprintf(out, "  Diagnostics: %d (use --diagnostics to list)\n", len(items))
	for _, k := range order {
		if affected := diag.Count(items, k); affected > 0 {
			fmt.Fprintf(out, "    %s: %d (%s affected)\n", k, records[k], analysis.FormatNumber(affected))
		} else {
			fmt.Fprintf(out, "    %s: %d\n", k, records[k])
		}
	}
}
