package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeHashing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.TargetDir, err = expandPath(c.Paths.TargetDir); err != nil {
		return fmt.Errorf("paths.target_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ManifestPath) == "" {
		c.Paths.ManifestPath = defaultManifestPath
	}
	if c.Paths.ManifestPath, err = expandPath(c.Paths.ManifestPath); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = defaultJournalPath
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	for i, root := range c.Paths.ExtraRoots {
		if c.Paths.ExtraRoots[i], err = expandPath(root); err != nil {
			return fmt.Errorf("paths.extra_roots[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeIntake() {
	if c.Intake.PollIntervalSeconds <= 0 {
		c.Intake.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Intake.SettleIntervalMillis <= 0 {
		c.Intake.SettleIntervalMillis = defaultSettleIntervalMillis
	}
	if c.Intake.MaxInFlight <= 0 {
		c.Intake.MaxInFlight = defaultMaxInFlight
	}
	if c.Intake.Workers < c.Intake.MaxInFlight && c.Intake.Workers > 0 {
		c.Intake.MaxInFlight = c.Intake.Workers
	}
	if len(c.Intake.Extensions) == 0 {
		c.Intake.Extensions = defaultExtensions()
	}
	normalized := make([]string, 0, len(c.Intake.Extensions))
	for _, ext := range c.Intake.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Intake.Extensions = normalized
}

func (c *Config) normalizeHashing() {
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	if c.Hashing.Algorithm == "" {
		c.Hashing.Algorithm = defaultHashAlgorithm
	}
	if c.Hashing.ChunkSizeKiB <= 0 {
		c.Hashing.ChunkSizeKiB = defaultChunkSizeKiB
	}
	if c.Hashing.MmapThresholdMiB <= 0 {
		c.Hashing.MmapThresholdMiB = defaultMmapThresholdMiB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
