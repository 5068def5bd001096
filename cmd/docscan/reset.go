package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the checkpoint so the next scan starts over",
	Long: `Remove last-processed.txt. With --all the findings and error logs are removed
as well; without it they keep accumulating across runs.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		if err := a.checkpoint.Clear(ctx); err != nil {
			return err
		}
		if resetAll {
			if err := a.results.Reset(ctx); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Scan state cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also remove the findings and error logs")
	rootCmd.AddCommand(resetCmd)
}
