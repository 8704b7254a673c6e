// Package hashing computes content fingerprints for change detection and
// manifest keying. Memory use is bounded regardless of file size.
package hashing
