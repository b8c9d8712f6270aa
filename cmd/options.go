package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	cfgpkg "github.com/NamanSharma89/HospitalInsights/internal/config"
	"github.com/NamanSharma89/HospitalInsights/internal/export"
	"github.com/NamanSharma89/HospitalInsights/internal/join"
	"github.com/NamanSharma89/HospitalInsights/internal/normalize"
	"github.com/NamanSharma89/HospitalInsights/internal/pipeline"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/NamanSharma89/HospitalInsights/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// runFlags are the pipeline and export flags shared by ingest and ingest-batch.
type runFlags struct {
	patientSheet   string
	diagnosisSheet string
	keepDuplicates bool
	exportDir      string
	format         string
	metricsFile    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.patientSheet, "patient-sheet", "", "patient sheet name (skips keyword resolution)")
	fs.StringVar(&f.diagnosisSheet, "diagnosis-sheet", "", "diagnosis sheet name (skips keyword resolution)")
	fs.BoolVar(&f.keepDuplicates, "keep-duplicate-patients", false, "keep repeated patient identifiers (merged rows may fan out)")
	fs.StringVar(&f.exportDir, "export-dir", "", "directory for exported tables (overrides config)")
	fs.StringVar(&f.format, "format", "", "export format: csv|xlsx (overrides config)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in prometheus text format to this file")
}

// options merges config values and flag overrides into pipeline options.
func (f *runFlags) options(cmd *cobra.Command, c *cfgpkg.Global) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.PatientSheet = strings.TrimSpace(f.patientSheet)
	opts.DiagnosisSheet = strings.TrimSpace(f.diagnosisSheet)
	opts.Normalize = normalize.Options{AgeMin: c.AgeMin, AgeMax: c.AgeMax, DateLayouts: c.DateLayouts}
	opts.Join.DedupePatients = c.DedupePatients
	if cmd.Flags().Changed("keep-duplicate-patients") {
		opts.Join.DedupePatients = !f.keepDuplicates
	}
	if c.TopDiagnoses > 0 {
		opts.TopDiagnoses = c.TopDiagnoses
	}
	return opts
}

// exportTarget resolves the export directory and format. An empty dir disables export.
func (f *runFlags) exportTarget(c *cfgpkg.Global) (dir, format string, err error) {
	dir = c.ExportDir
	if f.exportDir != "" {
		dir = f.exportDir
	}
	format = c.ExportFormat
	if f.format != "" {
		format = strings.ToLower(strings.TrimSpace(f.format))
	}
	switch format {
	case "csv", "xlsx":
	default:
		return "", "", fmt.Errorf("unsupported --format: %s (use csv|xlsx)", format)
	}
	return dir, format, nil
}

// exportResult writes the merged table (csv) or all three tables (xlsx) into dir, plus the
// summary report as text, and returns the written paths. merged may be a filtered copy of res.Merged.
func exportResult(res *pipeline.Result, merged *table.Table, summary analysis.Summary, dir, format string, at time.Time) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	path := uniquePath(utils.TimestampedName(dir, "merged", res.Source, format, at))
	var buf bytes.Buffer
	switch format {
	case "xlsx":
		err := export.XLSX(&buf,
			export.Sheet{Name: "Merged", Table: merged},
			export.Sheet{Name: "Patients", Table: res.Patients},
			export.Sheet{Name: "Diagnoses", Table: res.Diagnoses})
		if err != nil {
			return nil, err
		}
	default:
		if err := export.CSV(&buf, merged); err != nil {
			return nil, err
		}
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return nil, err
	}
	report := uniquePath(utils.TimestampedName(dir, "report", res.Source, "txt", at))
	if err := utils.SafeWriteFile(report, []byte(summary.Text())); err != nil {
		return nil, err
	}
	return []string{path, report}, nil
}

// uniquePath appends __2, __3, ... before the extension until path is unused.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		p := fmt.Sprintf("%s__%d%s", stem, i, ext)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}

// writeMetrics dumps the registry to path; an empty path is a no-op.
func writeMetrics(path string, reg *prometheus.Registry) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// summarize recomputes the run summary over a filtered merged table. Demographics cover
// the patients still present in merged.
func summarize(res *pipeline.Result, merged *table.Table, topN int, at time.Time) analysis.Summary {
	ids := map[string]bool{}
	for i := 0; i < merged.NumRows(); i++ {
		if k, ok := join.Key(merged.Value(i, table.IdentifierColumn)); ok {
			ids[k] = true
		}
	}
	patients := res.Patients.Filter(func(r table.Row) bool {
		k, ok := join.Key(r.Get(table.IdentifierColumn))
		return ok && ids[k]
	})
	return analysis.Summarize(analysis.SummaryInput{
		Patients:    patients,
		Diagnoses:   res.Diagnoses,
		Merged:      merged,
		Match:       res.Match,
		TopN:        topN,
		GeneratedAt: at,
	})
}
