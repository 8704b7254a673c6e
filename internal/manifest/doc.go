// Package manifest persists the source-path to processed-result mapping that
// gates duplicate work.
//
// The on-disk form is one JSON object written atomically (sibling temp file +
// rename). Corruption is self-healing: an unparseable file is renamed aside
// and the manifest restarts empty, trading historical continuity for
// availability. Persistence failures, by contrast, are surfaced as
// services.ErrPersistence so the caller can halt a batch commit.
package manifest
