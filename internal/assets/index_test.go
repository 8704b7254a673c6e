package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newIndexFixture(t *testing.T) (*IndexBuilder, string, string) {
	t.Helper()
	targetDir := t.TempDir()
	indexPath := filepath.Join(targetDir, "index.json")
	builder := NewIndexBuilder(targetDir, indexPath, "videos", []string{".mp4", ".mov"}, nil)
	return builder, targetDir, indexPath
}

func writeAsset(t *testing.T, dir, name string, modified time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

func TestRebuildListsVideosNewestFirst(t *testing.T) {
	builder, targetDir, indexPath := newIndexFixture(t)

	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	writeAsset(t, targetDir, "Old_720p30_20260824T080000.mp4", base.Add(-time.Hour))
	writeAsset(t, targetDir, "New_720p30_20260824T090000.mp4", base)

	index, err := builder.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if index.Count != 2 {
		t.Fatalf("count = %d, want 2", index.Count)
	}
	if index.Videos[0].Filename != "New_720p30_20260824T090000.mp4" {
		t.Fatalf("first entry = %q, want newest", index.Videos[0].Filename)
	}
	if index.Videos[0].Path != "videos/New_720p30_20260824T090000.mp4" {
		t.Fatalf("web path = %q", index.Videos[0].Path)
	}

	// The written document must round-trip.
	data, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var parsed Index
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("index not valid JSON: %v", err)
	}
	if parsed.Count != 2 {
		t.Fatalf("persisted count = %d, want 2", parsed.Count)
	}
}

func TestRebuildExcludesAliasesHiddenAndForeignFiles(t *testing.T) {
	builder, targetDir, _ := newIndexFixture(t)

	now := time.Now().UTC()
	writeAsset(t, targetDir, "Intro_720p30_20260824T090000.mp4", now)
	writeAsset(t, targetDir, "notes.txt", now)
	writeAsset(t, targetDir, ".hidden.mp4", now)
	if err := os.Symlink("Intro_720p30_20260824T090000.mp4", filepath.Join(targetDir, "Intro_latest.mp4")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	index, err := builder.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if index.Count != 1 {
		t.Fatalf("count = %d, want 1: %+v", index.Count, index.Videos)
	}
	if index.Videos[0].Filename != "Intro_720p30_20260824T090000.mp4" {
		t.Fatalf("unexpected entry %q", index.Videos[0].Filename)
	}
}

func TestRebuildIsWholesale(t *testing.T) {
	builder, targetDir, _ := newIndexFixture(t)

	writeAsset(t, targetDir, "A_720p30_20260824T090000.mp4", time.Now().UTC())
	if _, err := builder.Rebuild(); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}

	// Removing the asset and rebuilding must not merge with the old index.
	if err := os.Remove(filepath.Join(targetDir, "A_720p30_20260824T090000.mp4")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	index, err := builder.Rebuild()
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if index.Count != 0 {
		t.Fatalf("count = %d, want 0 after removal", index.Count)
	}
}

func TestRebuildOnEmptyDirectory(t *testing.T) {
	builder, _, indexPath := newIndexFixture(t)
	index, err := builder.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if index.Count != 0 || len(index.Videos) != 0 {
		t.Fatalf("expected empty index, got %+v", index)
	}
	if _, err := os.Stat(indexPath); err != nil {
		t.Fatalf("index file missing: %v", err)
	}
}
