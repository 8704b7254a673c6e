package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"renderport/internal/intake"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	for _, dir := range []string{"renders", "assets"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	configPath := filepath.Join(base, "config.toml")
	contents := `[paths]
source_dir = "` + filepath.Join(base, "renders") + `"
target_dir = "` + filepath.Join(base, "assets") + `"
manifest_path = "` + filepath.Join(base, "manifest.json") + `"
journal_path = "` + filepath.Join(base, "journal.db") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[logging]
format = "json"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestScanCommandEndToEnd(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", configPath, "scan"})
	if err != nil {
		t.Fatalf("scan: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Scanned") {
		t.Fatalf("missing summary table: %s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"--config", configPath, "status"})
	if err != nil {
		t.Fatalf("status: %v\noutput: %s", err, out)
	}
	for _, want := range []string{"Source directory", "Manifest entries", "Journal enabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderScanSummary(t *testing.T) {
	table := renderScanSummary(intake.Summary{Scanned: 3, Recorded: 2, Unchanged: 1})
	for _, want := range []string{"Scanned", "Recorded", "Unchanged"} {
		if !strings.Contains(table, want) {
			t.Errorf("summary table missing %q:\n%s", want, table)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.in); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
