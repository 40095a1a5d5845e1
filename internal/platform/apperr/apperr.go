// Package apperr defines the typed error taxonomy shared by the domain
// services. Handlers translate these into HTTP status codes; the domain
// packages themselves never format presentation strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindInsufficientCredit
	KindInvalidStateTransition
	KindInternal
)

// Conflict codes, subtyped by actor.
const (
	CodeTherapistConflict = "THERAPIST_SCHEDULING_CONFLICT"
	CodePatientConflict   = "PATIENT_SCHEDULING_CONFLICT"
)

// Error is a typed application error with a machine-readable code.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and, when both carry one, Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Msg: fmt.Sprintf(format, args...)}
}

func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func InsufficientCredit(requested, available float64) *Error {
	return &Error{
		Kind: KindInsufficientCredit,
		Code: "INSUFFICIENT_CREDIT",
		Msg:  fmt.Sprintf("credit application %.2f exceeds balance %.2f", requested, available),
	}
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return &Error{
		Kind: KindInvalidStateTransition,
		Code: "INVALID_STATE_TRANSITION",
		Msg:  fmt.Sprintf(format, args...),
	}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of err, or "INTERNAL" for untyped errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "INTERNAL"
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether err is a scheduling conflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
