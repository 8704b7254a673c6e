package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	SourceDir    string   `toml:"source_dir"`
	TargetDir    string   `toml:"target_dir"`
	ManifestPath string   `toml:"manifest_path"`
	JournalPath  string   `toml:"journal_path"`
	LogDir       string   `toml:"log_dir"`
	ExtraRoots   []string `toml:"extra_roots"`
}

// Intake contains configuration for candidate discovery and processing.
type Intake struct {
	PollIntervalSeconds  int      `toml:"poll_interval_seconds"`
	SettleIntervalMillis int      `toml:"settle_interval_millis"`
	Workers              int      `toml:"workers"`
	MaxInFlight          int      `toml:"max_in_flight"`
	Extensions           []string `toml:"extensions"`
	ExcludePatterns      []string `toml:"exclude_patterns"`
}

// Hashing contains configuration for content fingerprinting.
type Hashing struct {
	Algorithm        string `toml:"algorithm"`
	ChunkSizeKiB     int    `toml:"chunk_size_kib"`
	MmapThresholdMiB int    `toml:"mmap_threshold_mib"`
}

// Probe contains configuration for media metadata extraction.
type Probe struct {
	Enabled bool `toml:"enabled"`
}

// Journal contains configuration for the ingest history journal.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for renderport.
//
// Configuration sections by subsystem:
//   - Paths: source/target directories, manifest, journal, and log locations
//   - Intake: polling, size stabilization, worker counts, extension filters
//   - Hashing: fingerprint algorithm and read strategy tuning
//   - Probe: ffprobe metadata extraction toggle
//   - Journal: ingest history journal toggle
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Intake  Intake  `toml:"intake"`
	Hashing Hashing `toml:"hashing"`
	Probe   Probe   `toml:"probe"`
	Journal Journal `toml:"journal"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/renderport/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("renderport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation. The
// source directory is only checked, never created: it belongs to the render
// tool, and the pipeline must never write into it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TargetDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, path := range []string{c.Paths.ManifestPath, c.Paths.JournalPath} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create directory for %q: %w", path, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for metadata probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// IndexPath returns the location of the generated asset index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.TargetDir, "index.json")
}

// AllowedRoots returns the sandbox roots for this run: the source directory,
// the target directory, and any configured extra roots. The set is fixed at
// startup.
func (c *Config) AllowedRoots() []string {
	roots := make([]string, 0, 2+len(c.Paths.ExtraRoots))
	roots = append(roots, c.Paths.SourceDir, c.Paths.TargetDir)
	roots = append(roots, c.Paths.ExtraRoots...)
	return roots
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
