package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncBeforeScan bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the corpus, resuming after the last processed file",
	Long: `Scan every non-excluded file under LOCAL_DIR in sorted order. Findings go to
sensitive-files.json, per-file failures to error-files.json, and the path of the
last processed file to last-processed.txt. Per-file errors do not change the
exit status.`,
	RunE: runScan,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, scanCmd} {
		c.Flags().BoolVar(&syncBeforeScan, "sync", false, "mirror the configured S3 bucket into LOCAL_DIR first")
	}
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if syncBeforeScan {
		if err := a.runSync(ctx); err != nil {
			return err
		}
	}

	orch, err := a.buildOrchestrator(ctx)
	if err != nil {
		return err
	}

	report := orch.ScanAll(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scan completed: %d files analyzed, %d errors\n", len(report.AnalyzedFiles), len(report.Errors))
	if n := len(report.WithFindings()); n > 0 {
		fmt.Fprintf(out, "%d files with sensitive data, see %s\n", n, a.cfg.SensitiveFile())
	}
	if ctx.Err() != nil {
		fmt.Fprintf(out, "Interrupted after %d of %d files; rerun to resume\n",
			report.Skipped+report.Processed(), report.Total)
	}

	return nil
}
