// Package sandbox validates every path the pipeline touches.
//
// Validation runs in three steps: a dangerous-pattern check against the raw
// string (traversal, home expansion, system directories, shell
// metacharacters, control bytes), symlink-following canonicalization, and a
// containment check against the allowed root set. Mode-specific checks then
// verify readability, writability, or directory-ness. The sandbox mutates
// nothing; rejections are logged at warning level without echoing the raw
// attacker-controlled string.
package sandbox
