// Package intake drives the ingest pipeline. A Controller discovers candidate
// video files under the source directory, waits for each file's size to
// settle, validates it through the path sandbox, fingerprints its content,
// and copies new or changed files into the destination directory. Manifest
// persistence and index rebuilds happen once per batch; per-file failures are
// isolated and reported in the scan summary.
package intake
