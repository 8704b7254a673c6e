package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultNormalizes(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if !filepath.IsAbs(cfg.Paths.SourceDir) {
		t.Errorf("source_dir not expanded: %q", cfg.Paths.SourceDir)
	}
	if cfg.Intake.Workers <= 0 {
		t.Errorf("workers should default to CPU count, got %d", cfg.Intake.Workers)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
source_dir = "` + filepath.Join(dir, "renders") + `"
target_dir = "` + filepath.Join(dir, "assets") + `"

[intake]
extensions = ["MP4", "mov"]

[hashing]
algorithm = "SHA256"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Errorf("resolved path %q, want %q", resolved, path)
	}
	want := []string{".mp4", ".mov"}
	if len(cfg.Intake.Extensions) != len(want) {
		t.Fatalf("extensions = %v, want %v", cfg.Intake.Extensions, want)
	}
	for i, ext := range want {
		if cfg.Intake.Extensions[i] != ext {
			t.Errorf("extensions[%d] = %q, want %q", i, cfg.Intake.Extensions[i], ext)
		}
	}
	if cfg.Hashing.Algorithm != "sha256" {
		t.Errorf("algorithm = %q, want sha256", cfg.Hashing.Algorithm)
	}
}

func TestValidateRejectsSameSourceAndTarget(t *testing.T) {
	cfg := Default()
	cfg.Paths.SourceDir = "/tmp/same"
	cfg.Paths.TargetDir = "/tmp/same"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for identical source and target")
	}
}

func TestValidateRejectsUnknownAlgorithm(t *testing.T) {
	cfg := Default()
	cfg.Hashing.Algorithm = "crc32"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "hashing.algorithm") {
		t.Fatalf("expected hashing.algorithm error, got %v", err)
	}
}

func TestAllowedRootsIncludesExtraRoots(t *testing.T) {
	cfg := Default()
	cfg.Paths.SourceDir = "/srv/renders"
	cfg.Paths.TargetDir = "/srv/assets"
	cfg.Paths.ExtraRoots = []string{"/srv/shared"}
	roots := cfg.AllowedRoots()
	if len(roots) != 3 {
		t.Fatalf("roots = %v, want 3 entries", roots)
	}
	if roots[2] != "/srv/shared" {
		t.Errorf("roots[2] = %q, want /srv/shared", roots[2])
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
