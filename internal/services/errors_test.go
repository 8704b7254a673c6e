package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := fmt.Errorf("open /tmp/x: permission denied")
	err := Wrap(ErrPersistence, "manifest", "write", "failed to persist batch", base)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := Wrap(nil, "hashing", "read", "short read", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{ErrSecurity, false},
		{ErrValidation, true},
		{ErrTransient, true},
		{ErrPersistence, true},
	}
	for _, tc := range cases {
		err := Wrap(tc.marker, "intake", "process", "test", nil)
		if got := Retryable(err); got != tc.want {
			t.Errorf("Retryable(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}

func TestWrapDetailOrdering(t *testing.T) {
	err := Wrap(ErrValidation, "sandbox", "validate", "outside allowed roots", nil)
	want := "validation error: sandbox: validate: outside allowed roots"
	if err.Error() != want {
		t.Fatalf("unexpected message %q, want %q", err.Error(), want)
	}
}
