package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"renderport/internal/journal"
	"renderport/internal/logging"
	"renderport/internal/manifest"
	"renderport/internal/probe"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state: paths, manifest size, journal totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			entries := manifest.Open(cfg.Paths.ManifestPath, logger).Read()

			rows := [][]string{
				{"Source directory", cfg.Paths.SourceDir},
				{"Target directory", cfg.Paths.TargetDir},
				{"Manifest", cfg.Paths.ManifestPath},
				{"Manifest entries", fmt.Sprintf("%d", len(entries))},
				{"Index", cfg.IndexPath()},
				{"Probe enabled", yesNo(cfg.Probe.Enabled)},
				{"ffprobe available", yesNo(probe.Available(cfg.FFprobeBinary()))},
				{"Journal enabled", yesNo(cfg.Journal.Enabled)},
			}

			if cfg.Journal.Enabled {
				store, err := journal.Open(cfg.Paths.JournalPath)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer func() { _ = store.Close() }()
				counts, err := store.OutcomeCounts(cmd.Context())
				if err != nil {
					return fmt.Errorf("query journal: %w", err)
				}
				for _, outcome := range []journal.Outcome{
					journal.OutcomeRecorded,
					journal.OutcomeUnchanged,
					journal.OutcomeRejected,
					journal.OutcomeFailed,
				} {
					rows = append(rows, []string{
						"Journal " + string(outcome),
						fmt.Sprintf("%d", counts[outcome]),
					})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
