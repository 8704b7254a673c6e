package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"renderport/internal/intake"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one ingest pass over the source directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer pipe.Close()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, err := pipe.controller.Scan(runCtx)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderScanSummary(summary))
			if verbose {
				for _, result := range summary.Results {
					fmt.Fprintln(out, "  "+result.String())
				}
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d file(s) failed; see log for details", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print a line per processed file")
	return cmd
}

func renderScanSummary(summary intake.Summary) string {
	rows := [][]string{
		{"Scanned", fmt.Sprintf("%d", summary.Scanned)},
		{"Recorded", fmt.Sprintf("%d", summary.Recorded)},
		{"Unchanged", fmt.Sprintf("%d", summary.Unchanged)},
		{"Rejected", fmt.Sprintf("%d", summary.Rejected)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Deferred", fmt.Sprintf("%d", summary.Deferred)},
	}
	return renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
