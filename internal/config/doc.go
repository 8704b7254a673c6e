// Package config loads, normalizes, and validates renderport's TOML
// configuration.
package config
