package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"renderport/internal/assets"
	"renderport/internal/config"
	"renderport/internal/hashing"
	"renderport/internal/intake"
	"renderport/internal/journal"
	"renderport/internal/logging"
	"renderport/internal/manifest"
	"renderport/internal/sandbox"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// pipeline bundles the wired collaborators behind one Close.
type pipeline struct {
	controller *intake.Controller
	manifest   *manifest.Manifest
	journal    *journal.Store
	logger     *slog.Logger
	cfg        *config.Config
}

func (p *pipeline) Close() {
	if p.journal != nil {
		_ = p.journal.Close()
	}
}

// buildPipeline wires the full ingest stack from configuration. The journal
// is optional: when disabled it is simply absent and history commands fail
// with a clear message.
func (c *commandContext) buildPipeline() (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	sb, err := sandbox.New(cfg.AllowedRoots(), logger)
	if err != nil {
		return nil, fmt.Errorf("init sandbox: %w", err)
	}

	algorithm, err := hashing.Parse(cfg.Hashing.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("init hasher: %w", err)
	}
	hasher := hashing.New(algorithm, logger,
		hashing.WithChunkSize(cfg.Hashing.ChunkSizeKiB<<10),
		hashing.WithMmapThreshold(int64(cfg.Hashing.MmapThresholdMiB)<<20),
	)

	store, err := c.openJournal(cfg)
	if err != nil {
		return nil, err
	}

	man := manifest.Open(cfg.Paths.ManifestPath, logger)
	controller, err := intake.NewController(intake.Options{
		Config:   cfg,
		Sandbox:  sb,
		Hasher:   hasher,
		Manifest: man,
		Copier:   assets.NewCopier(cfg.Paths.TargetDir, sb, logger),
		Index:    assets.NewIndexBuilder(cfg.Paths.TargetDir, cfg.IndexPath(), "/videos", cfg.Intake.Extensions, logger),
		Journal:  store,
		Logger:   logger,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	return &pipeline{
		controller: controller,
		manifest:   man,
		journal:    store,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

func (c *commandContext) openJournal(cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	store, err := journal.Open(cfg.Paths.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
