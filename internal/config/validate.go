package config

import (
	"errors"
	"fmt"
)

var supportedHashAlgorithms = map[string]struct{}{
	"sha256": {},
	"sha1":   {},
	"md5":    {},
}

var supportedLogFormats = map[string]struct{}{
	"auto":    {},
	"console": {},
	"json":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.SourceDir == "" {
		return errors.New("paths.source_dir must be set")
	}
	if c.Paths.TargetDir == "" {
		return errors.New("paths.target_dir must be set")
	}
	if c.Paths.SourceDir == c.Paths.TargetDir {
		return errors.New("paths.source_dir and paths.target_dir must differ")
	}
	if c.Paths.ManifestPath == "" {
		return errors.New("paths.manifest_path must be set")
	}
	return nil
}

func (c *Config) validateIntake() error {
	if c.Intake.Workers < 0 {
		return errors.New("intake.workers must not be negative")
	}
	if len(c.Intake.Extensions) == 0 {
		return errors.New("intake.extensions must list at least one video extension")
	}
	return nil
}

func (c *Config) validateHashing() error {
	if _, ok := supportedHashAlgorithms[c.Hashing.Algorithm]; !ok {
		return fmt.Errorf("hashing.algorithm: unsupported value %q (sha256, sha1, md5)", c.Hashing.Algorithm)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := supportedLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format: unsupported value %q (auto, console, json)", c.Logging.Format)
	}
	return nil
}
