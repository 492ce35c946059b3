package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies ledger errors so the API boundary can map them to
// transport status codes without parsing message text
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrNotFound
	ErrAuthorization
	ErrValidation
	ErrConflict
)

// Error is a ledger error carrying its classification
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// NotFoundf returns a NotFound error with a formatted message
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Authorizationf returns an Authorization error with a formatted message
func Authorizationf(format string, args ...any) error {
	return &Error{Kind: ErrAuthorization, msg: fmt.Sprintf(format, args...)}
}

// Validationf returns a Validation error with a formatted message
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Conflictf returns a Conflict error with a formatted message
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, unwrapping any context added
// with errors.Wrap along the way
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrUnknown
	}
	if ledgerErr, ok := errors.Cause(err).(*Error); ok {
		return ledgerErr.Kind
	}
	return ErrUnknown
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool {
	return KindOf(err) == ErrNotFound
}

// IsAuthorization reports whether err is an Authorization error
func IsAuthorization(err error) bool {
	return KindOf(err) == ErrAuthorization
}

// IsValidation reports whether err is a Validation error
func IsValidation(err error) bool {
	return KindOf(err) == ErrValidation
}

// IsConflict reports whether err is a Conflict error
func IsConflict(err error) bool {
	return KindOf(err) == ErrConflict
}
