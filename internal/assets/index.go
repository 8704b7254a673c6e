package assets

import (
	"encoding/json"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"renderport/internal/fileutil"
	"renderport/internal/logging"
	"renderport/internal/services"
)

// IndexEntry describes one destination asset in the generated index.
type IndexEntry struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Index is the JSON document the downstream web app consumes. It is a
// materialized view of the destination directory, fully rebuildable at any
// time, never a source of truth.
type Index struct {
	Videos    []IndexEntry `json:"videos"`
	Count     int          `json:"count"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IndexBuilder regenerates the asset index from the destination directory's
// current contents.
type IndexBuilder struct {
	targetDir  string
	indexPath  string
	webPrefix  string
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewIndexBuilder constructs a builder writing indexPath from targetDir.
// webPrefix is prepended to filenames to form the web-relative asset path.
// Only files whose extension appears in extensions are listed.
func NewIndexBuilder(targetDir, indexPath, webPrefix string, extensions []string, logger *slog.Logger) *IndexBuilder {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return &IndexBuilder{
		targetDir:  targetDir,
		indexPath:  indexPath,
		webPrefix:  webPrefix,
		extensions: set,
		logger:     logging.NewComponentLogger(logger, "index"),
	}
}

// Rebuild lists recognized video files in the destination directory
// (excluding latest aliases), sorts them newest-first, and atomically
// replaces the index document. The rebuild is idempotent and safe to race:
// the last writer wins with a complete, valid index.
func (b *IndexBuilder) Rebuild() (Index, error) {
	entries, err := os.ReadDir(b.targetDir)
	if err != nil {
		return Index{}, services.Wrap(services.ErrTransient, "index", "list", "failed to list destination directory", err)
	}

	videos := make([]IndexEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := b.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if IsLatestAlias(name) {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// File vanished between listing and stat; the next rebuild
			// will see the final state.
			continue
		}
		videos = append(videos, IndexEntry{
			Filename: name,
			Path:     path.Join(b.webPrefix, name),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].Modified.After(videos[j].Modified)
	})

	index := Index{
		Videos:    videos,
		Count:     len(videos),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return Index{}, services.Wrap(services.ErrTransient, "index", "serialize", "failed to serialize index", err)
	}
	if err := fileutil.WriteFileAtomic(b.indexPath, data, 0o644); err != nil {
		return Index{}, services.Wrap(services.ErrPersistence, "index", "write", "failed to persist index", err)
	}

	b.logger.Debug("index rebuilt", logging.Int("count", index.Count))
	return index, nil
}
