package assets

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// qualityPattern matches render quality directory names such as 480p15,
// 720p30, 1080p60, 2160p60.
var qualityPattern = regexp.MustCompile(`^\d{3,4}p\d{1,3}$`)

// UnknownQuality labels sources whose parent directory carries no quality hint.
const UnknownQuality = "unknown"

// SceneName derives the logical scene name from a source path: the filename
// stem, NFC-normalized so differently-composed Unicode spellings of the same
// scene collapse to one name, with whitespace mapped to underscores.
func SceneName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = norm.NFC.String(strings.TrimSpace(stem))
	stem = strings.Join(strings.Fields(stem), "_")
	if stem == "" {
		return "scene"
	}
	return stem
}

// QualityLabel derives the render quality from the source's parent directory
// name, or UnknownQuality when the directory does not look like a quality
// label.
func QualityLabel(sourcePath string) string {
	parent := filepath.Base(filepath.Dir(sourcePath))
	if qualityPattern.MatchString(parent) {
		return parent
	}
	return UnknownQuality
}

// DestinationName builds the collision-safe destination filename
// {scene}_{quality}_{timestamp}{ext} for a copy happening at now.
func DestinationName(scene, quality string, now time.Time, ext string) string {
	return scene + "_" + quality + "_" + now.UTC().Format("20060102T150405") + ext
}

// LatestName builds the per-scene convenience alias filename.
func LatestName(scene, ext string) string {
	return scene + "_latest" + ext
}

// IsLatestAlias reports whether a destination filename is a latest alias
// rather than a real asset.
func IsLatestAlias(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(stem, "_latest")
}
