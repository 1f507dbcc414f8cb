package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/batch"
	"github.com/sells-group/parcel-cli/internal/checkpoint"
	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
	"github.com/sells-group/parcel-cli/internal/sink"
)

var (
	enrichInput       string
	enrichOutput      string
	enrichCounty      string
	enrichConcurrency int
	enrichLimit       int
	enrichResumeDB    string
	enrichNoProgress  bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a deals CSV with parcel and census-geography columns",
	Long: `Runs resolution over every row of a deals CSV, writing an enriched copy
incrementally so an interrupted run can resume.

Rows that already carry a parcel APN or a terminal status pass through
untouched. Rows whose county differs from --county are marked OUT_OF_SCOPE
without touching any provider.

Examples:
  parcel-cli enrich --input deals_rows.csv
  parcel-cli enrich --input deals_rows.csv --concurrency 4 --resume-db enrich.db`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.Concurrency = enrichConcurrency
		}
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		rows, err := sink.ReadRows(enrichInput)
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		if enrichLimit > 0 && enrichLimit < len(rows) {
			rows = rows[:enrichLimit]
		}
		zap.L().Info("enrich: loaded input", zap.String("file", enrichInput), zap.Int("rows", len(rows)))

		outPath := enrichOutput
		if outPath == "" {
			outPath = defaultOutputPath(enrichInput)
		}

		// Creating the sink truncates outPath, so recover what an earlier
		// interrupted run already resolved before it is gone.
		if prior := sink.RecoverRows(outPath); len(prior) > 0 {
			rows = batch.MergePrior(rows, prior)
			zap.L().Info("enrich: recovered prior output", zap.String("file", outPath), zap.Int("rows", len(prior)))
		}

		csvSink, err := sink.NewCSVSink(outPath)
		if err != nil {
			return eris.Wrap(err, "enrich: open output")
		}
		defer csvSink.Close() //nolint:errcheck

		county := enrichCounty
		if county == "" {
			county = cfg.Resolve.CountyGEOID
		}

		enricher := &batch.Enricher{
			Resolver:    newResolver(cfg),
			Sink:        csvSink,
			CountyGEOID: county,
			Concurrency: cfg.Batch.Concurrency,
			Retry: resilience.RetryConfig{
				MaxAttempts: cfg.Batch.MaxRetries,
			},
		}

		resumeDB := enrichResumeDB
		if resumeDB == "" {
			resumeDB = cfg.Batch.CheckpointDB
		}
		if resumeDB != "" {
			store, err := checkpoint.Open(resumeDB)
			if err != nil {
				return eris.Wrap(err, "enrich: open checkpoint db")
			}
			defer store.Close() //nolint:errcheck
			enricher.Checkpoint = store
			enricher.RunKey = filepath.Base(enrichInput)
		}

		var bar *progressbar.ProgressBar
		if !enrichNoProgress {
			bar = progressbar.NewOptions(len(rows),
				progressbar.OptionSetDescription("enriching"),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
			)
			enricher.OnRow = func(model.DealRow) { _ = bar.Add(1) }
		}

		start := time.Now()
		summary, err := enricher.Run(ctx, rows)
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		printSummary(cmd, summary, outPath, time.Since(start))
		return nil
	},
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_with_parcels" + ext
}

func printSummary(cmd *cobra.Command, s *batch.Summary, outPath string, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Done in %s: %d rows, %d passed through\n", elapsed.Round(time.Second), s.Total, s.Skipped)
	for _, status := range []model.ResolutionStatus{
		model.StatusResolved, model.StatusNoParcel, model.StatusNoGeocode,
		model.StatusOutOfScope, model.StatusError,
	} {
		if n := s.Counts[status]; n > 0 {
			fmt.Fprintf(out, "  %-13s %d\n", status, n)
		}
	}
	fmt.Fprintf(out, "Output: %s\n", outPath)
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "input deals CSV (required)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output CSV path (default <input>_with_parcels.csv)")
	enrichCmd.Flags().StringVar(&enrichCounty, "county", "", "target county GEOID (default from config)")
	enrichCmd.Flags().IntVar(&enrichConcurrency, "concurrency", 1, "worker pool size")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "process at most N rows")
	enrichCmd.Flags().StringVar(&enrichResumeDB, "resume-db", "", "SQLite checkpoint database for resumable runs")
	enrichCmd.Flags().BoolVar(&enrichNoProgress, "no-progress", false, "disable the progress bar")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}
