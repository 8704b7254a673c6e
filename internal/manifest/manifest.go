package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"renderport/internal/fileutil"
	"renderport/internal/hashing"
	"renderport/internal/logging"
	"renderport/internal/services"
)

// Entry records the last successful processing of one source file. Entries
// are created on first copy and overwritten in place on reprocessing; they
// are never deleted automatically.
type Entry struct {
	ContentHash     string            `json:"content_hash"`
	HashAlgorithm   string            `json:"hash_algorithm"`
	DestinationPath string            `json:"destination_path"`
	ProcessedAt     time.Time         `json:"processed_at"`
	SceneName       string            `json:"scene_name"`
	QualityLabel    string            `json:"quality_label"`
	SizeBytes       int64             `json:"size_bytes"`
	DurationSeconds *float64          `json:"duration_seconds,omitempty"`
	Resolution      string            `json:"resolution,omitempty"`
	Codec           string            `json:"codec,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Manifest is the durable map from canonical source path to Entry, persisted
// as a single JSON document. All mutation goes through AddEntry/BatchUpdate/
// Write; concurrent writers in this process serialize on an internal mutex,
// and writers in other processes are excluded with a flock advisory lock next
// to the manifest file. Both guarantees are provided.
type Manifest struct {
	path     string
	lockPath string
	logger   *slog.Logger

	mu     sync.Mutex
	flock  *flock.Flock
	cache  map[string]Entry
	loaded bool
}

// Open constructs a manifest bound to the given file path. The file does not
// need to exist yet.
func Open(path string, logger *slog.Logger) *Manifest {
	lockPath := path + ".lock"
	return &Manifest{
		path:     path,
		lockPath: lockPath,
		logger:   logging.NewComponentLogger(logger, "manifest"),
		flock:    flock.New(lockPath),
	}
}

// Path returns the manifest file location.
func (m *Manifest) Path() string { return m.path }

// Read returns the current manifest contents. The cached view is served when
// valid; otherwise the file is loaded from disk. A corrupt file is quarantined
// (renamed aside) and an empty map is returned; corruption never surfaces as
// an error to the caller.
func (m *Manifest) Read() map[string]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()
	return copyEntries(m.cache)
}

// NeedsProcessing reports whether the file at key is new or changed relative
// to the stored entry. Entries recorded under a different hash algorithm are
// treated as stale so an algorithm change forces reprocessing instead of a
// silent mismatched comparison.
func (m *Manifest) NeedsProcessing(key string, current hashing.Digest) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadLocked()

	entry, ok := m.cache[key]
	if !ok {
		return true
	}
	if entry.HashAlgorithm != string(current.Algorithm) {
		return true
	}
	return entry.ContentHash != current.Hex
}

// AddEntry records a single entry with read-modify-write semantics under both
// guards. Prefer BatchUpdate when staging several entries: each AddEntry call
// independently reloads, serializes, and fsyncs.
func (m *Manifest) AddEntry(key string, entry Entry) error {
	return m.BatchUpdate(map[string]Entry{key: entry})
}

// BatchUpdate merges the staged entries into the manifest in one
// read-modify-write cycle and persists the result atomically.
func (m *Manifest) BatchUpdate(entries map[string]Entry) error {
	if len(entries) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flock.Lock(); err != nil {
		return services.Wrap(services.ErrPersistence, "manifest", "lock", "failed to acquire manifest lock", err)
	}
	defer func() {
		if err := m.flock.Unlock(); err != nil {
			m.logger.Warn("failed to release manifest lock", logging.Error(err))
		}
	}()

	// Reload under the file lock so updates from other processes merge
	// instead of being overwritten.
	m.loaded = false
	m.loadLocked()

	merged := copyEntries(m.cache)
	for key, entry := range entries {
		merged[key] = entry
	}

	if err := m.writeLocked(merged); err != nil {
		return err
	}
	m.cache = merged
	m.loaded = true
	return nil
}

// Write replaces the entire manifest with fullMap, atomically. The previous
// file remains intact and valid if persistence fails at any point before the
// final rename.
func (m *Manifest) Write(fullMap map[string]Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flock.Lock(); err != nil {
		return services.Wrap(services.ErrPersistence, "manifest", "lock", "failed to acquire manifest lock", err)
	}
	defer func() {
		if err := m.flock.Unlock(); err != nil {
			m.logger.Warn("failed to release manifest lock", logging.Error(err))
		}
	}()

	if err := m.writeLocked(fullMap); err != nil {
		return err
	}
	m.cache = copyEntries(fullMap)
	m.loaded = true
	return nil
}

func (m *Manifest) writeLocked(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPersistence, "manifest", "serialize", "failed to serialize manifest", err)
	}
	if err := fileutil.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return services.Wrap(services.ErrPersistence, "manifest", "write", "failed to persist manifest", err)
	}
	return nil
}

// loadLocked populates the cache from disk if it is not already valid. Parse
// failures quarantine the corrupt file and reset to empty; the pipeline keeps
// ingesting at the cost of reprocessing previously recorded files.
func (m *Manifest) loadLocked() {
	if m.loaded {
		return
	}
	m.cache = map[string]Entry{}
	m.loaded = true

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("manifest unreadable, starting empty", logging.Error(err))
		}
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		m.quarantine(err)
		return
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	m.cache = entries
}

func (m *Manifest) quarantine(parseErr error) {
	backup := fmt.Sprintf("%s.corrupt-%s", m.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(m.path, backup); err != nil {
		m.logger.Warn("failed to quarantine corrupt manifest; continuing with empty state",
			logging.Error(err),
		)
		return
	}
	m.logger.Warn("manifest corrupt, quarantined and reset",
		logging.Error(parseErr),
		logging.String("backup", backup),
	)
}

func copyEntries(entries map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for key, entry := range entries {
		out[key] = entry
	}
	return out
}
