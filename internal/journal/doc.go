// Package journal keeps a durable per-file ingest history in SQLite. Every
// processed file gets one row per run with its outcome, hash, destination,
// and timing, so operators can answer "when did this render last land, and
// why was it skipped" without replaying the manifest.
package journal
