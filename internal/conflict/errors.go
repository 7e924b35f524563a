package conflict

import (
	"errors"
	"fmt"
)

// Error is a typed, fixed-shape failure value.
type Error struct {
	// Code identifies the failure mode.
	Code Code `json:"code"`

	// Op names the operation that failed, e.g. "eventlog.append".
	Op string `json:"op"`

	// Reason is a human-readable description.
	Reason string `json:"reason"`

	// Details carries structured context such as the colliding op ID or the
	// expected and actual hashes. Values are JSON-compatible.
	Details map[string]any `json:"details,omitempty"`
}

// New creates an Error.
func New(code Code, op, reason string, details map[string]any) *Error {
	return &Error{Code: code, Op: op, Reason: reason, Details: details}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Detail returns the detail stored under key, or nil.
func (e *Error) Detail(key string) any {
	if e == nil || e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// As extracts an *Error from err, following wrapped errors.
func As(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, CodeUnknown for foreign errors,
// and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
