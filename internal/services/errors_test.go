package services_test

import (
	"errors"
	"strings"
	"testing"

	"idcheck/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConfiguration, "runner", "open detail log", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"runner", "open detail log", "failed"} {
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
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestCategoryMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "scan", "list", "bad", nil), "validation"},
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad", nil), "configuration"},
		{services.Wrap(services.ErrNotFound, "scan", "stat", "missing", nil), "not_found"},
		{services.Wrap(services.ErrBusy, "runner", "lock", "held", nil), "busy"},
		{errors.New("plain"), "failure"},
	}
	for _, tt := range tests {
		if got := services.Category(tt.err); got != tt.want {
			t.Fatalf("Category(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
