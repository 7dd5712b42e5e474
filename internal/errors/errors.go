// Package errors carries relaymon's user-facing error type. Every failure
// that reaches the terminal states what broke, the underlying cause when one
// exists, and what the user can do about it.
package errors

import (
	"errors"
	"strings"
)

// Failure categories. The code never shows up in rendered output; commands
// use it to branch on the kind of failure (IsCode) without string matching.
const (
	ErrConfig  = "CONFIG"
	ErrTracker = "TRACKER"
	ErrProcess = "PROCESS"
	ErrSSH     = "SSH"
)

// Error is a failure with enough context to act on. Rendered output stacks
// the message, the cause, and the suggestion as separate blocks, each
// optional part simply absent when empty.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New builds an Error with no underlying cause.
func New(code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

// Wrap attaches a message to an underlying error. The code defaults to
// ErrTracker; use WrapWithCode when the category matters.
func Wrap(err error, message string) *Error {
	return &Error{Code: ErrTracker, Message: message, Cause: err}
}

// WrapWithCode attaches a message, category, and suggestion to an
// underlying error.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion, Cause: err}
}

// Error renders the failure for the terminal:
//
//	✗ what failed
//
//	  why it failed
//
//	  how to fix it
func (e *Error) Error() string {
	blocks := []string{"✗ " + e.Message}
	if e.Cause != nil {
		blocks = append(blocks, "  "+e.Cause.Error())
	}
	if e.Suggestion != "" {
		blocks = append(blocks, "  "+e.Suggestion)
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err is (or wraps) an Error in the given category.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
