package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation           ErrorKind = "ValidationFailure"
	KindPermissionDenied     ErrorKind = "PermissionDenied"
	KindNotFound             ErrorKind = "NotFound"
	KindInvalidTransition    ErrorKind = "InvalidTransition"
	KindDuplicateIdentifier  ErrorKind = "DuplicateIdentifier"
	KindMalformedSnapshot    ErrorKind = "MalformedSnapshot"
	KindConfirmationMismatch ErrorKind = "ConfirmationMismatch"
)

// Error is a recoverable failure reported back to the actor.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrDuplicateIdentifier  = &Error{Kind: KindDuplicateIdentifier}
	ErrMalformedSnapshot    = &Error{Kind: KindMalformedSnapshot}
	ErrConfirmationMismatch = &Error{Kind: KindConfirmationMismatch}
)

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

func notFound(what string) error {
	return newError(KindNotFound, "%s not found", what)
}

// KindOf reports the kind of a service error, or "" for storage and other failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
