package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint and a summary of recorded findings and errors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		findings, err := a.results.Findings(ctx)
		if err != nil {
			return err
		}
		failures, err := a.results.Errors(ctx)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%s\n\n", cyan("=== docscan status ==="))
		fmt.Fprintf(out, "Corpus root:  %s\n", a.cfg.LocalDir)
		if cp, ok := a.checkpoint.Read(ctx); ok {
			fmt.Fprintf(out, "Checkpoint:   %s\n", cp)
		} else {
			fmt.Fprintf(out, "Checkpoint:   %s\n", gray("none, next scan starts from the first file"))
		}

		fmt.Fprintf(out, "\n%s %d\n", yellow("Files with sensitive data:"), len(findings))
		counts := make(map[string]int)
		for _, f := range findings {
			for category := range f.Matches {
				counts[category]++
			}
		}
		categories := make([]string, 0, len(counts))
		for c := range counts {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(out, "  %-20s %d\n", c, counts[c])
		}

		fmt.Fprintf(out, "\n%s %d\n", red("Files with errors:"), len(failures))
		for _, f := range failures {
			fmt.Fprintf(out, "  %s: %s\n", f.FilePath, gray(f.Error))
		}
		fmt.Fprintln(out)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
