package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/pipeline"
	"github.com/NamanSharma89/HospitalInsights/internal/workbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	ibFlags       runFlags
	ibConcurrency int
	ibQuiet       bool
)

var ingestBatchCmd = &cobra.Command{
	Use:   "ingest-batch <files...>",
	Short: "Ingest several workbooks concurrently; one failure does not stop the rest",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		c := currentConfig()
		opts := ibFlags.options(cmd, c)
		dir, format, err := ibFlags.exportTarget(c)
		if err != nil {
			return err
		}
		limit := c.BatchConcurrency
		if ibConcurrency > 0 {
			limit = ibConcurrency
		}
		logger, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		reg := prometheus.NewRegistry()
		p := pipeline.New(opts, logger, pipeline.NewMetrics(reg))

		results := make([]*pipeline.Result, len(files))
		errs := make([]error, len(files))
		var g errgroup.Group
		g.SetLimit(limit)
		for i, path := range files {
			g.Go(func() error {
				// Failures are collected per file so the other runs keep going.
				results[i], errs[i] = p.ProcessFile(path)
				return nil
			})
		}
		_ = g.Wait()

		out := cmd.OutOrStdout()
		now := time.Now()
		failed := 0
		for i, path := range files {
			prefix := fmt.Sprintf("[%d/%d]", i+1, len(files))
			if errs[i] != nil {
				failed++
				fmt.Fprintf(out, "%s ✗ %s: %v\n", prefix, filepath.Base(path), errs[i])
				continue
			}
			res := results[i]
			if !ibQuiet {
				fmt.Fprintf(out, "%s ✓ %s: merged %d rows, matched %d/%d\n",
					prefix, filepath.Base(path), res.Merged.NumRows(), res.Match.Matched, res.Match.Total)
			}
			if dir != "" {
				written, err := exportResult(res, res.Merged, res.Summary, dir, format, now)
				if err != nil {
					return err
				}
				if !ibQuiet {
					for _, w := range written {
						fmt.Fprintf(out, "    exported %s\n", w)
					}
				}
			}
		}
		if err := writeMetrics(ibFlags.metricsFile, reg); err != nil {
			return err
		}
		fmt.Fprintf(out, "Processed %d workbook(s): %d ok, %d failed\n", len(files), len(files)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d workbooks failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestBatchCmd)
	ibFlags.register(ingestBatchCmd)
	ingestBatchCmd.Flags().IntVar(&ibConcurrency, "concurrency", 0, "max workbooks processed at once (overrides config)")
	ingestBatchCmd.Flags().BoolVarP(&ibQuiet, "quiet", "q", false, "only print failures and the final tally")
}

// expandInputs resolves globs and literal paths, keeping workbook files once each in sorted order.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if !workbook.CanRead(m) {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input workbooks matched (expected .xlsx or .xlsm)")
	}
	sort.Strings(files)
	return files, nil
}
