// Package probe provides a typed wrapper around ffprobe JSON output for
// extracting optional duration/resolution/codec metadata. Probe failures are
// never fatal to ingestion; callers record the metadata only when available.
package probe
