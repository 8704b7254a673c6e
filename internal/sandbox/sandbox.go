package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"renderport/internal/logging"
	"renderport/internal/services"
)

// Mode selects the checks applied after a path passes pattern and containment
// validation.
type Mode int

const (
	// ModeInput requires the resolved path to exist and be a readable file.
	ModeInput Mode = iota
	// ModeOutput requires a writable destination and refuses to clobber
	// hidden files.
	ModeOutput
	// ModeDirectory requires the resolved path to be an existing directory.
	ModeDirectory
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeOutput:
		return "output"
	case ModeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// ViolationKind classifies why a path was rejected.
type ViolationKind string

const (
	KindDangerousPattern ViolationKind = "dangerous_pattern"
	KindUnresolvablePath ViolationKind = "unresolvable_path"
	KindOutsideSandbox   ViolationKind = "outside_sandbox"
	KindModeCheck        ViolationKind = "mode_check"
)

// Violation is the error returned for every sandbox rejection. It unwraps to
// services.ErrSecurity so callers can classify it without importing this
// package's kinds.
type Violation struct {
	Kind   ViolationKind
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return fmt.Sprintf("security violation: %s", v.Kind)
	}
	return fmt.Sprintf("security violation: %s: %s", v.Kind, v.Detail)
}

func (v *Violation) Unwrap() error { return services.ErrSecurity }

// dangerousPatterns are matched against the raw path string before any
// resolution, catching attacks that rely on the raw text rather than the
// resolved target.
var dangerousPatterns = []struct {
	label string
	match func(string) bool
}{
	{"parent traversal", func(s string) bool { return strings.Contains(s, "..") }},
	{"home expansion", func(s string) bool { return strings.HasPrefix(s, "~") || strings.Contains(s, "/~") }},
	{"system directory", func(s string) bool {
		for _, prefix := range []string{"/etc/", "/proc/", "/dev/", "/sys/", "/boot/"} {
			if strings.HasPrefix(s, prefix) || s == strings.TrimSuffix(prefix, "/") {
				return true
			}
		}
		return false
	}},
	{"shell metacharacter", func(s string) bool { return strings.ContainsAny(s, ";|&$`<>(){}[]") }},
	{"control character", func(s string) bool {
		for _, r := range s {
			if r < 0x20 || r == 0x7f {
				return true
			}
		}
		return false
	}},
}

// Sandbox validates that every path the pipeline touches resolves inside a
// fixed set of allowed roots. It performs no I/O mutation.
type Sandbox struct {
	roots  []string
	logger *slog.Logger
}

// New constructs a sandbox for the given allowed roots. Roots are resolved
// through symlinks at construction so later containment checks compare
// canonical paths; the set is immutable for the life of the sandbox.
func New(roots []string, logger *slog.Logger) (*Sandbox, error) {
	if len(roots) == 0 {
		return nil, errors.New("sandbox requires at least one allowed root")
	}
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		canonical, err := resolveExisting(root)
		if err != nil {
			return nil, fmt.Errorf("resolve sandbox root %q: %w", root, err)
		}
		resolved = append(resolved, canonical)
	}
	if len(resolved) == 0 {
		return nil, errors.New("sandbox requires at least one allowed root")
	}
	return &Sandbox{
		roots:  resolved,
		logger: logging.NewComponentLogger(logger, "sandbox"),
	}, nil
}

// Roots returns a copy of the allowed root set.
func (s *Sandbox) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// Validate checks a raw path against the dangerous-pattern list, resolves it
// (following symlinks), verifies containment in the allowed roots, and applies
// the mode-specific checks. On success it returns the resolved absolute path.
func (s *Sandbox) Validate(raw string, mode Mode) (string, error) {
	for _, pattern := range dangerousPatterns {
		if pattern.match(raw) {
			return "", s.reject(&Violation{Kind: KindDangerousPattern, Detail: pattern.label}, mode)
		}
	}

	resolved, err := resolve(raw)
	if err != nil {
		return "", s.reject(&Violation{Kind: KindUnresolvablePath, Detail: "path resolution failed"}, mode)
	}

	if !s.contains(resolved) {
		return "", s.reject(&Violation{Kind: KindOutsideSandbox, Detail: "resolved outside allowed roots"}, mode)
	}

	if err := checkMode(resolved, mode); err != nil {
		var violation *Violation
		if errors.As(err, &violation) {
			return "", s.reject(violation, mode)
		}
		return "", err
	}

	return resolved, nil
}

func (s *Sandbox) contains(path string) bool {
	for _, root := range s.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// reject logs the rejection category. The raw path is deliberately omitted:
// attacker-controlled strings must not be able to inject log content.
func (s *Sandbox) reject(v *Violation, mode Mode) error {
	s.logger.Warn("path rejected",
		logging.String("kind", string(v.Kind)),
		logging.String("category", v.Detail),
		logging.String("mode", mode.String()),
	)
	return v
}

func checkMode(resolved string, mode Mode) error {
	switch mode {
	case ModeInput:
		info, err := os.Stat(resolved)
		if err != nil {
			return &Violation{Kind: KindModeCheck, Detail: "input does not exist"}
		}
		if info.IsDir() {
			return &Violation{Kind: KindModeCheck, Detail: "input is a directory"}
		}
		if unix.Access(resolved, unix.R_OK) != nil {
			return &Violation{Kind: KindModeCheck, Detail: "input not readable"}
		}
		return nil
	case ModeOutput:
		if strings.HasPrefix(filepath.Base(resolved), ".") {
			if _, err := os.Lstat(resolved); err == nil {
				return &Violation{Kind: KindModeCheck, Detail: "refusing to overwrite hidden file"}
			}
		}
		ancestor, err := nearestExisting(filepath.Dir(resolved))
		if err != nil {
			return &Violation{Kind: KindModeCheck, Detail: "output parent unavailable"}
		}
		info, err := os.Stat(ancestor)
		if err != nil || !info.IsDir() {
			return &Violation{Kind: KindModeCheck, Detail: "output parent is not a directory"}
		}
		if unix.Access(ancestor, unix.W_OK) != nil {
			return &Violation{Kind: KindModeCheck, Detail: "output parent not writable"}
		}
		return nil
	case ModeDirectory:
		info, err := os.Stat(resolved)
		if err != nil {
			return &Violation{Kind: KindModeCheck, Detail: "directory does not exist"}
		}
		if !info.IsDir() {
			return &Violation{Kind: KindModeCheck, Detail: "not a directory"}
		}
		return nil
	default:
		return fmt.Errorf("unknown sandbox mode %d", mode)
	}
}

// resolve canonicalizes a path, following symlinks through the nearest
// existing ancestor so paths that do not exist yet (output targets) still
// resolve deterministically.
func resolve(raw string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(raw))
	if err != nil {
		return "", err
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return canonical, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	existing, err := nearestExisting(abs)
	if err != nil {
		return "", err
	}
	canonicalBase, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	remainder, err := filepath.Rel(existing, abs)
	if err != nil {
		return "", err
	}
	if remainder == "." {
		return canonicalBase, nil
	}
	return filepath.Join(canonicalBase, remainder), nil
}

// resolveExisting canonicalizes a path that is expected to exist, falling
// back to ancestor resolution when it does not (roots may be created later in
// startup).
func resolveExisting(path string) (string, error) {
	return resolve(path)
}

func nearestExisting(path string) (string, error) {
	current := path
	for {
		if _, err := os.Lstat(current); err == nil {
			return current, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %q", path)
		}
		current = parent
	}
}
