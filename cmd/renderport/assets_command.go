package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"renderport/internal/assets"
	"renderport/internal/logging"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var rebuild bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List the published asset index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var index assets.Index
			if rebuild {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				builder := assets.NewIndexBuilder(cfg.Paths.TargetDir, cfg.IndexPath(), "/videos", cfg.Intake.Extensions, logger)
				index, err = builder.Rebuild()
				if err != nil {
					return fmt.Errorf("rebuild index: %w", err)
				}
			} else {
				data, err := os.ReadFile(cfg.IndexPath())
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						fmt.Fprintln(cmd.OutOrStdout(), "No index yet; run `renderport scan` or use --rebuild.")
						return nil
					}
					return fmt.Errorf("read index: %w", err)
				}
				if err := json.Unmarshal(data, &index); err != nil {
					return fmt.Errorf("parse index: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, index)
			}
			rows := make([][]string, 0, len(index.Videos))
			for _, video := range index.Videos {
				rows = append(rows, []string{
					video.Filename,
					formatSize(video.Size),
					video.Modified.Local().Format("2006-01-02 15:04:05"),
					video.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Size", "Modified", "Web Path"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d asset(s), updated %s\n",
				index.Count, index.UpdatedAt.Local().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild the index from the destination directory first")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the index as JSON")
	return cmd
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
