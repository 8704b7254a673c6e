package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"renderport/internal/hashing"
	"renderport/internal/services"
)

func testEntry(hash string) Entry {
	return Entry{
		ContentHash:     hash,
		HashAlgorithm:   "sha256",
		DestinationPath: "/assets/Intro_720p30_123.mp4",
		ProcessedAt:     time.Now().UTC(),
		SceneName:       "Intro",
		QualityLabel:    "720p30",
		SizeBytes:       10240,
	}
}

func TestReadMissingFileReturnsEmpty(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "manifest.json"), nil)
	if got := m.Read(); len(got) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(got))
	}
}

func TestAddEntryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := Open(path, nil)

	if err := m.AddEntry("/src/Intro.mp4", testEntry("aa11")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	// A fresh instance must see the persisted entry.
	fresh := Open(path, nil)
	entries := fresh.Read()
	entry, ok := entries["/src/Intro.mp4"]
	if !ok {
		t.Fatal("entry missing after reopen")
	}
	if entry.ContentHash != "aa11" || entry.SceneName != "Intro" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestNeedsProcessing(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "manifest.json"), nil)
	digest := hashing.Digest{Algorithm: hashing.SHA256, Hex: "aa11"}

	if !m.NeedsProcessing("/src/Intro.mp4", digest) {
		t.Fatal("absent key must need processing")
	}

	if err := m.AddEntry("/src/Intro.mp4", testEntry("aa11")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if m.NeedsProcessing("/src/Intro.mp4", digest) {
		t.Fatal("matching hash must not need processing")
	}

	changed := hashing.Digest{Algorithm: hashing.SHA256, Hex: "bb22"}
	if !m.NeedsProcessing("/src/Intro.mp4", changed) {
		t.Fatal("changed hash must need processing")
	}
}

func TestNeedsProcessingOnAlgorithmChange(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "manifest.json"), nil)
	if err := m.AddEntry("/src/Intro.mp4", testEntry("aa11")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	// Same hex under a different algorithm is stale, not a match.
	digest := hashing.Digest{Algorithm: hashing.MD5, Hex: "aa11"}
	if !m.NeedsProcessing("/src/Intro.mp4", digest) {
		t.Fatal("entry recorded under another algorithm must be reprocessed")
	}
}

func TestCorruptionRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte("not json {{{"), 0o644); err != nil {
		t.Fatalf("write corrupt manifest: %v", err)
	}

	m := Open(path, nil)
	if got := m.Read(); len(got) != 0 {
		t.Fatalf("expected empty map after corruption, got %d entries", len(got))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var quarantined bool
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".corrupt-") {
			quarantined = true
		}
	}
	if !quarantined {
		t.Fatal("corrupt file was not renamed aside")
	}

	// Subsequent writes proceed normally and contain exactly the new entry.
	if err := m.AddEntry("/src/New.mp4", testEntry("cc33")); err != nil {
		t.Fatalf("AddEntry after recovery: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var parsed map[string]Entry
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("manifest not valid JSON after recovery: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(parsed))
	}
}

func TestCorruptionWithNonObjectJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(`[1,2,3]`), 0o644); err != nil {
		t.Fatalf("write array manifest: %v", err)
	}

	m := Open(path, nil)
	if got := m.Read(); len(got) != 0 {
		t.Fatalf("expected empty map for non-object JSON, got %d entries", len(got))
	}
}

func TestWriteFailureSurfacesPersistenceError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	dir := t.TempDir()
	sub := filepath.Join(dir, "locked")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(sub, "manifest.json")

	m := Open(path, nil)
	if err := m.AddEntry("/src/a.mp4", testEntry("aa")); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	if err := os.Chmod(sub, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(sub, 0o755) })

	err = m.AddEntry("/src/b.mp4", testEntry("bb"))
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	// Previous manifest must be fully intact.
	after, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read manifest after failure: %v", readErr)
	}
	if string(before) != string(after) {
		t.Fatal("failed write modified the previous manifest")
	}
}

func TestConcurrentStagingLosesNoEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := Open(path, nil)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("/src/scene_%02d.mp4", i)
			errs <- m.AddEntry(key, testEntry(fmt.Sprintf("hash%02d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent AddEntry: %v", err)
		}
	}

	entries := Open(path, nil).Read()
	if len(entries) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(entries))
	}
}

func TestBatchUpdateMergesWithExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := Open(path, nil)
	if err := m.AddEntry("/src/old.mp4", testEntry("old")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	batch := map[string]Entry{
		"/src/a.mp4": testEntry("aa"),
		"/src/b.mp4": testEntry("bb"),
	}
	if err := m.BatchUpdate(batch); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}

	entries := m.Read()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if _, ok := entries["/src/old.mp4"]; !ok {
		t.Fatal("batch update dropped pre-existing entry")
	}
}

func TestBatchUpdateEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := Open(path, nil)
	if err := m.BatchUpdate(nil); err != nil {
		t.Fatalf("empty BatchUpdate: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("empty batch must not create a manifest file")
	}
}
