// Package apperr defines the typed errors returned by budget commands.
// Callers match on the kind with errors.Is against the exported sentinels.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a command failure
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindItemLocked        Kind = "item_locked"
	KindBudgetLocked      Kind = "budget_locked"
	KindValidationFailed  Kind = "validation_failed"
	KindConflictRetry     Kind = "conflict_retry"
)

// Sentinels for errors.Is comparisons
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrItemLocked        = &Error{Kind: KindItemLocked}
	ErrBudgetLocked      = &Error{Kind: KindBudgetLocked}
	ErrValidationFailed  = &Error{Kind: KindValidationFailed}
	ErrConflictRetry     = &Error{Kind: KindConflictRetry}
)

// Violation is one offending field of a rejected payload
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Error is a structured command failure
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	Violations []Violation
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = v.Error()
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	return b.String()
}

// Is reports kind equality so wrapped errors match the package sentinels
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or "" for untyped errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ViolationsOf returns the violations carried by err, if any
func ViolationsOf(err error) []Violation {
	var e *Error
	if errors.As(err, &e) {
		return e.Violations
	}
	return nil
}

func newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...interface{}) *Error {
	return newf(KindNotFound, op, format, args...)
}

func Forbidden(op, format string, args ...interface{}) *Error {
	return newf(KindForbidden, op, format, args...)
}

func ItemLocked(op, format string, args ...interface{}) *Error {
	return newf(KindItemLocked, op, format, args...)
}

func BudgetLocked(op, format string, args ...interface{}) *Error {
	return newf(KindBudgetLocked, op, format, args...)
}

func ConflictRetry(op, format string, args ...interface{}) *Error {
	return newf(KindConflictRetry, op, format, args...)
}

// InvalidTransition names the attempted command and the current status
func InvalidTransition(op, command, status string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("cannot %s budget in status %s", command, status),
	}
}

// Validation builds a ValidationFailed error carrying every violation
func Validation(op string, violations []Violation) *Error {
	return &Error{
		Kind:       KindValidationFailed,
		Op:         op,
		Message:    fmt.Sprintf("%d invalid field(s)", len(violations)),
		Violations: violations,
	}
}
