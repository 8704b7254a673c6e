package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"renderport/internal/fileutil"
	"renderport/internal/logging"
	"renderport/internal/sandbox"
	"renderport/internal/services"
)

// Copier transfers validated source files into the destination asset
// directory. Every transfer is write-to-temp-then-rename, so consumers of the
// destination directory never observe a partially written asset.
type Copier struct {
	targetDir string
	sandbox   *sandbox.Sandbox
	logger    *slog.Logger
	now       func() time.Time
}

// NewCopier constructs a copier writing into targetDir. Destination paths are
// revalidated through the sandbox in output mode before any bytes move.
func NewCopier(targetDir string, sb *sandbox.Sandbox, logger *slog.Logger) *Copier {
	return &Copier{
		targetDir: targetDir,
		sandbox:   sb,
		logger:    logging.NewComponentLogger(logger, "copier"),
		now:       time.Now,
	}
}

// Copy transfers source into the destination directory under a
// collision-safe {scene}_{quality}_{timestamp}{ext} name and returns the
// final destination path. After a successful copy the {scene}_latest{ext}
// alias is atomically repointed; alias failure is logged but does not fail
// the copy.
func (c *Copier) Copy(source, scene, quality string) (string, error) {
	ext := filepath.Ext(source)
	dest, err := c.allocateDestination(scene, quality, ext)
	if err != nil {
		return "", err
	}

	if _, err := c.sandbox.Validate(dest, sandbox.ModeOutput); err != nil {
		return "", err
	}

	if err := fileutil.CopyFileAtomic(source, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "copier", "copy", "source disappeared mid-copy", err)
		}
		return "", services.Wrap(services.ErrTransient, "copier", "copy", "transfer failed", err)
	}

	c.updateLatestAlias(dest, scene, ext)

	c.logger.Info("asset copied",
		logging.String("source", source),
		logging.String("destination", dest),
	)
	return dest, nil
}

// allocateDestination picks an unused destination name. Repeated renders of
// the same scene within one timestamp second get a numeric suffix.
func (c *Copier) allocateDestination(scene, quality, ext string) (string, error) {
	const maxAttempts = 1000
	base := DestinationName(scene, quality, c.now(), ext)
	candidate := filepath.Join(c.targetDir, base)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := os.Lstat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return candidate, nil
			}
			return "", services.Wrap(services.ErrTransient, "copier", "allocate", "destination probe failed", err)
		}
		stem := base[:len(base)-len(ext)]
		candidate = filepath.Join(c.targetDir, fmt.Sprintf("%s-%d%s", stem, attempt, ext))
	}
	return "", services.Wrap(services.ErrTransient, "copier", "allocate",
		fmt.Sprintf("exhausted destination name slots for scene %s", scene), nil)
}

func (c *Copier) updateLatestAlias(dest, scene, ext string) {
	link := filepath.Join(c.targetDir, LatestName(scene, ext))
	if err := fileutil.ReplaceSymlink(filepath.Base(dest), link); err != nil {
		c.logger.Warn("failed to update latest alias",
			logging.String("scene", scene),
			logging.Error(err),
		)
	}
}
