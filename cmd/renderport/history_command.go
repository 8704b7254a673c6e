package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"renderport/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var source string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ingest events from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("the journal is disabled in configuration (journal.enabled = false)")
			}

			store, err := journal.Open(cfg.Paths.JournalPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer func() { _ = store.Close() }()

			var events []journal.Event
			if strings.TrimSpace(source) != "" {
				events, err = store.BySource(cmd.Context(), source)
			} else {
				events, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("query journal: %w", err)
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), events)
			}

			rows := make([][]string, 0, len(events))
			for _, event := range events {
				detail := filepath.Base(event.DestinationPath)
				if event.ErrorMessage != "" {
					detail = event.ErrorMessage
				}
				rows = append(rows, []string{
					event.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					filepath.Base(event.SourcePath),
					event.QualityLabel,
					string(event.Outcome),
					event.Duration.String(),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Source", "Quality", "Outcome", "Took", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Show the full history for one source path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit events as JSON")
	return cmd
}
