package config

import "runtime"

const (
	defaultSourceDir            = "~/renders"
	defaultTargetDir            = "~/assets/videos"
	defaultManifestPath         = "~/.local/share/renderport/manifest.json"
	defaultJournalPath          = "~/.local/share/renderport/journal.db"
	defaultLogDir               = "~/.local/share/renderport/logs"
	defaultPollIntervalSeconds  = 5
	defaultSettleIntervalMillis = 500
	defaultMaxInFlight          = 4
	defaultHashAlgorithm        = "sha256"
	defaultChunkSizeKiB         = 1024
	defaultMmapThresholdMiB     = 256
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
)

func defaultExtensions() []string {
	return []string{".mp4", ".mov", ".mkv", ".webm", ".avi"}
}

func defaultExcludePatterns() []string {
	return []string{"partial_movie_files", ".tmp", "~"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:    defaultSourceDir,
			TargetDir:    defaultTargetDir,
			ManifestPath: defaultManifestPath,
			JournalPath:  defaultJournalPath,
			LogDir:       defaultLogDir,
		},
		Intake: Intake{
			PollIntervalSeconds:  defaultPollIntervalSeconds,
			SettleIntervalMillis: defaultSettleIntervalMillis,
			Workers:              runtime.NumCPU(),
			MaxInFlight:          defaultMaxInFlight,
			Extensions:           defaultExtensions(),
			ExcludePatterns:      defaultExcludePatterns(),
		},
		Hashing: Hashing{
			Algorithm:        defaultHashAlgorithm,
			ChunkSizeKiB:     defaultChunkSizeKiB,
			MmapThresholdMiB: defaultMmapThresholdMiB,
		},
		Probe: Probe{
			Enabled: true,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
