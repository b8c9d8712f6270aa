package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NamanSharma89/HospitalInsights/internal/workbook"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// resetFlags clears values and Changed state left behind by a previous invocation.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args; it fails the test on error.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so config is read from and written there.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

type sheet struct {
	name string
	rows [][]any
}

func writeWorkbook(t *testing.T, path string, sheets ...sheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(s.name, cell, &row))
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, f.SaveAs(path))
	return path
}

func hospitalWorkbook(t *testing.T, path string) string {
	return writeWorkbook(t, path,
		sheet{"Patient_Details", [][]any{
			{"Registry ID", "Age", "Gender", "Department"},
			{"A1", 34, "m", "Cardiology"},
			{"C3", 50, "F", "Neurology"},
		}},
		sheet{"Diagnosis_Details", [][]any{
			{"Registry ID", "Diagnosis", "Diagnosis Date"},
			{"A1", " flu ", "2024-01-15"},
			{"B2", "Cold", "01/20/2024"},
			{"C3", "migraine", "2024-02-03"},
		}},
	)
}

func filesIn(t *testing.T, dir, ext string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
	require.NoError(t, err)
	return matches
}

func TestCLI_IngestExportsCSVAndReport(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "data", "hospital.xlsx"))
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "ingest", src, "--export-dir", outDir, "--report")
	assert.Contains(t, out, "✓ Processed")
	assert.Contains(t, out, "Matched: 2/3")
	assert.Contains(t, out, "[OVERVIEW]")
	assert.Contains(t, out, "[TOP 3 DIAGNOSES]")
	assert.Contains(t, out, "✓ Exported")

	csvs := filesIn(t, outDir, ".csv")
	require.Len(t, csvs, 1)
	assert.Contains(t, filepath.Base(csvs[0]), "merged_hospital_")
	body, err := os.ReadFile(csvs[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "DIAGNOSIS")
	assert.Contains(t, string(body), "FLU")

	reports := filesIn(t, outDir, ".txt")
	require.Len(t, reports, 1)
	text, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	assert.Contains(t, string(text), "HOSPITAL DATA SUMMARY REPORT")
}

func TestCLI_IngestJSONWithFilter(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "hospital.xlsx"))

	out := runCmd(t, "ingest", src, "--json", "--gender", "female")
	var rep struct {
		RunID        string `json:"run_id"`
		FilteredRows *int   `json:"filtered_rows"`
		Match        struct {
			Total   int `json:"total"`
			Matched int `json:"matched"`
		} `json:"match"`
		Summary struct {
			MergedRows int `json:"merged_rows"`
		} `json:"summary"`
		Columns struct {
			Numeric  []string `json:"numeric"`
			Datetime []string `json:"datetime"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 3, rep.Match.Total)
	assert.Equal(t, 2, rep.Match.Matched)
	require.NotNil(t, rep.FilteredRows)
	assert.Equal(t, 1, *rep.FilteredRows)
	assert.Equal(t, 1, rep.Summary.MergedRows)
	assert.Contains(t, rep.Columns.Numeric, "AGE")
	assert.Contains(t, rep.Columns.Datetime, "DIAGNOSIS DATE")
}

func TestCLI_IngestReportsAgeBandsAndAffectedCells(t *testing.T) {
	home := isolate(t)
	src := writeWorkbook(t, filepath.Join(home, "ages.xlsx"),
		sheet{"Patients", [][]any{
			{"Registry ID", "Age", "Gender"},
			{"A1", 34, "M"},
			{"B2", 200, "F"},
		}},
		sheet{"Diagnoses", [][]any{
			{"Registry ID", "Diagnosis"},
			{"A1", "flu"},
			{"B2", "cold"},
		}},
	)

	out := runCmd(t, "ingest", src, "--report")
	assert.Contains(t, out, "out_of_range: 1 (1 affected)")
	assert.Contains(t, out, "Age Distribution:")
	assert.Contains(t, out, "31-40: 1 (50.0%)")
	assert.Contains(t, out, "MALE: 1 (50.0%)")
}

func TestCLI_IngestRejectsBadFilter(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "hospital.xlsx"))

	_, err := execute(t, "ingest", src, "--min-age", "60", "--max-age", "20")
	assert.Error(t, err)
	_, err = execute(t, "ingest", src, "--from", "not a date")
	assert.Error(t, err)
	_, err = execute(t, "ingest", src, "--format", "pdf", "--export-dir", filepath.Join(home, "out"))
	assert.Error(t, err)
}

func TestCLI_IngestXLSXExport(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "hospital.xlsx"))
	outDir := filepath.Join(home, "out")

	runCmd(t, "ingest", src, "--export-dir", outDir, "--format", "xlsx")
	books := filesIn(t, outDir, ".xlsx")
	require.Len(t, books, 1)
	wb, err := workbook.ReadFile(books[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Merged", "Patients", "Diagnoses"}, wb.SheetNames())
}

func TestCLI_IngestMissingSheet(t *testing.T) {
	home := isolate(t)
	src := writeWorkbook(t, filepath.Join(home, "other.xlsx"),
		sheet{"Visits", [][]any{{"Registry ID"}, {"A1"}}},
		sheet{"Billing", [][]any{{"Registry ID"}, {"A1"}}},
	)
	metrics := filepath.Join(home, "metrics.prom")

	_, err := execute(t, "ingest", src, "--metrics-file", metrics)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "patient")

	// Failed runs are still recorded.
	body, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hospitalinsights_runs_total")
}

func TestCLI_IngestKeepDuplicatePatients(t *testing.T) {
	home := isolate(t)
	src := writeWorkbook(t, filepath.Join(home, "dupes.xlsx"),
		sheet{"Patients", [][]any{
			{"Registry ID", "Age"},
			{"A1", 30},
			{"A1", 31},
		}},
		sheet{"Diagnoses", [][]any{
			{"Registry ID", "Diagnosis"},
			{"A1", "flu"},
		}},
	)

	out := runCmd(t, "ingest", src)
	assert.Contains(t, out, "Duplicate patient rows dropped: 1")
	assert.Contains(t, out, "Merged: 1")

	out = runCmd(t, "ingest", src, "--keep-duplicate-patients")
	assert.Contains(t, out, "Join fan-out: 1")
	assert.Contains(t, out, "Merged: 2")
}

func TestCLI_Roles(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "hospital.xlsx"))

	out := runCmd(t, "roles", src)
	assert.Contains(t, out, "[Patients (Patient_Details)] 2 rows")
	assert.Contains(t, out, "[Merged] 3 rows")
	assert.Contains(t, out, "IDENTIFIER")
	assert.Contains(t, out, "DIAGNOSIS")
	assert.Contains(t, out, "DEPARTMENT")
	assert.Contains(t, out, "  numeric: AGE\n")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	runCmd(t, "config", "set", "top_diagnoses", "5")
	_, err := os.Stat(filepath.Join(home, ".hospitalinsights", "config.yaml"))
	require.NoError(t, err)

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "top_diagnoses: 5")
	assert.Contains(t, out, "export_format: csv")

	_, err = execute(t, "config", "set", "export_format", "pdf")
	assert.Error(t, err)
}

func TestCLI_ConfigDrivesReport(t *testing.T) {
	home := isolate(t)
	src := hospitalWorkbook(t, filepath.Join(home, "hospital.xlsx"))

	runCmd(t, "config", "set", "top_diagnoses", "1")
	out := runCmd(t, "ingest", src, "--report")
	assert.Contains(t, out, "[TOP 1 DIAGNOSES]")
}
