package services_test

import (
	"errors"
	"strings"
	"testing"

	"wavconv/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "encode", "lame", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encode", "lame", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsStartupError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrDirectoryNotFound, "batch", "validate", "input", nil), true},
		{services.Wrap(services.ErrDirectoryUnreadable, "scan", "open", "", errors.New("eacces")), true},
		{services.Wrap(services.ErrConfiguration, "config", "", "bad quality", nil), true},
		{services.Wrap(services.ErrExternalTool, "encode", "lame", "", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsStartupError(tc.err); got != tc.want {
			t.Fatalf("IsStartupError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
