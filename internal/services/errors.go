package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSecurity marks sandbox rejections. Files rejected for security reasons
	// are never retried.
	ErrSecurity = errors.New("security violation")
	// ErrValidation marks inputs that failed a structural check (unsupported
	// extension, missing file, excluded path).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a path that disappeared between discovery and use.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks manifest or journal write failures. These halt the
	// current batch commit instead of silently dropping staged entries.
	ErrPersistence = errors.New("persistence failure")
	// ErrExternalTool marks subprocess failures (ffprobe).
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks per-file failures worth retrying on the next pass.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a failed file should remain a candidate on the
// next scan. Security rejections are tied to the path's identity and are not
// retried; everything else is.
func Retryable(err error) bool {
	return !errors.Is(err, ErrSecurity)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
