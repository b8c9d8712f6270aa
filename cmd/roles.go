package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	"github.com/NamanSharma89/HospitalInsights/internal/pipeline"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/spf13/cobra"
)

var rolesFlags runFlags

var rolesCmd = &cobra.Command{
	Use:   "roles <file>",
	Short: "Show the column roles detected in the patient, diagnosis and merged tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		logger, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		res, err := pipeline.New(rolesFlags.options(cmd, c), logger, nil).ProcessFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printRoles(out, fmt.Sprintf("Patients (%s)", res.PatientSheet), res, res.Patients)
		printRoles(out, fmt.Sprintf("Diagnoses (%s)", res.DiagnosisSheet), res, res.Diagnoses)
		printRoles(out, "Merged", res, res.Merged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	f := rolesCmd.Flags()
	f.StringVar(&rolesFlags.patientSheet, "patient-sheet", "", "patient sheet name (skips keyword resolution)")
	f.StringVar(&rolesFlags.diagnosisSheet, "diagnosis-sheet", "", "diagnosis sheet name (skips keyword resolution)")
}

func printRoles(out io.Writer, title string, res *pipeline.Result, t *table.Table) {
	fmt.Fprintf(out, "[%s] %d rows\n", title, t.NumRows())
	kinds := analysis.Kinds(t)
	for _, cr := range res.Roles(t) {
		fmt.Fprintf(out, "  %-28s %-13s %s\n", cr.Column, cr.Role, kinds[cr.Column])
	}
	info := analysis.ColumnInfo(t)
	fmt.Fprintf(out, "  numeric: %s\n", strings.Join(info.Numeric, ", "))
	fmt.Fprintf(out, "  categorical: %s\n", strings.Join(info.Categorical, ", "))
	fmt.Fprintf(out, "  datetime: %s\n", strings.Join(info.Datetime, ", "))
}
