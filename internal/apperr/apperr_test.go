package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := New(Path, "root %q does not exist", "/nope")
	if got, want := err.Error(), `path: root "/nope" does not exist`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := Wrap(ReasoningService, context.DeadlineExceeded, "judge call")
	if got, want := wrapped.Error(), "reasoning_service: judge call: context deadline exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestKindThroughWrapping(t *testing.T) {
	base := New(Configuration, "simple.max_files must be positive")
	err := fmt.Errorf("load: %w", base)

	if KindOf(err) != Configuration {
		t.Errorf("KindOf = %q, want %q", KindOf(err), Configuration)
	}
	if !Is(err, Configuration) {
		t.Error("expected Is(Configuration)")
	}
	if Is(err, Path) {
		t.Error("did not expect Is(Path)")
	}
	if Is(nil, Configuration) {
		t.Error("nil error must not match any kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(Path, "x"), "invalid path or configuration"},
		{New(Configuration, "x"), "invalid path or configuration"},
		{New(ReasoningService, "x"), "reasoning service unavailable, deterministic fallback used"},
		{New(Invariant, "x"), "internal error"},
		{errors.New("boom"), "internal error"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("evaluate: %w", context.Canceled), "cancelled"},
		{Wrap(Path, context.Canceled, "walk"), "cancelled"},
	}
	for _, tt := range tests {
		if got := Category(tt.err); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
