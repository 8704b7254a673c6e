// Package testsupport provides shared fixtures for package tests: a fully
// wired temp-directory configuration and sized file writers.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"renderport/internal/config"
)

// NewConfig returns a validated configuration rooted entirely inside the
// test's temp directory, with intervals tightened so settle loops finish in
// milliseconds.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "renders")
	cfg.Paths.TargetDir = filepath.Join(base, "assets")
	cfg.Paths.ManifestPath = filepath.Join(base, "state", "manifest.json")
	cfg.Paths.JournalPath = filepath.Join(base, "state", "journal.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Intake.PollIntervalSeconds = 1
	cfg.Intake.SettleIntervalMillis = 1
	cfg.Probe.Enabled = false
	cfg.Journal.Enabled = false

	if err := os.MkdirAll(cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("create source dir: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WriteFile creates path (and parents) with the given contents.
func WriteFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent for %s: %v", path, err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSizedFile creates path filled with a repeating pattern of the given
// length, so distinct sizes produce distinct digests.
func WriteSizedFile(t *testing.T, path string, size int) {
	t.Helper()
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	WriteFile(t, path, buf)
}
