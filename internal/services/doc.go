// Package services provides the shared error taxonomy and context helpers used
// across the ingest pipeline.
//
// Errors raised by pipeline components are tagged with one of the exported
// sentinel markers via Wrap so the intake controller can classify failures:
// security rejections are permanent, persistence failures halt the batch
// commit, and everything else leaves the file a candidate for the next pass.
package services
