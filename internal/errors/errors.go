// Package errors provides structured, user-facing errors for dronestatus.
//
// Each error carries a code for programmatic checks, a message describing what
// went wrong, and an optional suggestion telling the operator how to fix it.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Codes group failures by the part of the ground-station setup that broke.
const (
	// ErrConfig covers unreadable or invalid .dronestatus.yaml settings.
	ErrConfig = "CONFIG"
	// ErrTransport covers rosbridge connections and subscriptions.
	ErrTransport = "TRANSPORT"
	// ErrSSH covers the optional tunnel to the companion computer.
	ErrSSH = "SSH"
)

// Error is a failure reported to the operator before or instead of the
// status line. It prints on stderr as:
//
//	✗ <what failed>
//	  cause: <underlying error>
//	  hint:  <what to try>
//
// The cause and hint lines are left out when empty.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New returns an Error without an underlying cause.
func New(code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

// Wrap attaches message to err under ErrTransport, the code most runtime
// failures fall into.
func Wrap(err error, message string) *Error {
	return &Error{Code: ErrTransport, Message: message, Cause: err}
}

// WrapWithCode attaches message and suggestion to err under code.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion, Cause: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %s", e.Message)
	if e.Cause != nil {
		// Causes from nested Errors are indented with the rest.
		cause := strings.TrimRight(e.Cause.Error(), "\n")
		fmt.Fprintf(&b, "\n  cause: %s", strings.ReplaceAll(cause, "\n", "\n  "))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  hint:  %s", e.Suggestion)
	}
	b.WriteString("\n")
	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var dsErr *Error
	if errors.As(err, &dsErr) {
		return dsErr.Code == code
	}
	return false
}
