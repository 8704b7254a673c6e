package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Continuously ingest new renders until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer pipe.Close()

			// One watcher per configuration; two pollers racing the same
			// source directory would double-copy every settling file.
			lockPath := filepath.Join(pipe.cfg.Paths.LogDir, "renderport.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another renderport watch is already running (lock: %s)", lockPath)
			}
			defer func() { _ = lock.Unlock() }()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := pipe.controller.Watch(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
