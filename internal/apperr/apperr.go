// Package apperr defines the error taxonomy shared by the analysis pipeline.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a class of failure with a stable string value.
type Kind string

const (
	// Path indicates a missing root, a non-directory root, or no eligible files.
	Path Kind = "path"
	// FileParse indicates malformed source in a single file.
	FileParse Kind = "file_parse"
	// Configuration indicates invalid thresholds, options or a missing credential.
	Configuration Kind = "configuration"
	// ReasoningService indicates a failed or malformed reasoning-service call.
	ReasoningService Kind = "reasoning_service"
	// Invariant indicates an internal programming error.
	Invariant Kind = "invariant"
)

// Error carries a Kind alongside a message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Category returns the user-facing description for err.
func Category(err error) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	switch KindOf(err) {
	case Path, Configuration:
		return "invalid path or configuration"
	case ReasoningService:
		return "reasoning service unavailable, deterministic fallback used"
	default:
		return "internal error"
	}
}
