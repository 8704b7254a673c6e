// Package main hosts the renderport CLI entrypoint and command graph.
//
// The Cobra-based command tree wires the ingest pipeline together for one-off
// scans and long-running watch sessions, and surfaces the manifest, asset
// index, and ingest journal as read-only views. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
