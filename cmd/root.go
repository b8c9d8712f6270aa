package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/NamanSharma89/HospitalInsights/internal/config"
	"github.com/NamanSharma89/HospitalInsights/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "hospitalinsights",
	Short: "HospitalInsights: clean, normalize and join hospital workbooks",
	Long: `HospitalInsights reads an Excel workbook holding patient demographics and diagnoses,
cleans both sheets, normalizes ages, genders, dates and diagnoses, joins them on the
patient identifier, and exports the merged table with a summary report.`,
	// Execute prints errors itself.
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.hospitalinsights/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c
}

// currentConfig returns the loaded config, or built-in defaults when loading failed.
func currentConfig() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		ExportFormat:     "csv",
		DedupePatients:   true,
		AgeMax:           150,
		TopDiagnoses:     10,
		BatchConcurrency: 4,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

func newLogger(c *cfgpkg.Global) (*zap.Logger, error) {
	level := c.LogLevel
	if debug {
		level = "debug"
	}
	return logging.New(level, c.LogFormat)
}
