package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

// AuthError is returned when the remote auth service rejects credentials or a session.
// Reason is safe to show to the user.
type AuthError struct {
	Reason string
	Err    error
}

func NewAuthError(reason string, err ...error) error {
	ae := &AuthError{Reason: reason}
	if len(err) > 0 {
		ae.Err = err[0]
	}
	return ae
}

func (err AuthError) Error() string {
	if err.Reason == "" && err.Err != nil {
		return err.Err.Error()
	}
	return err.Reason
}

func (err AuthError) Unwrap() error { return err.Err }

func IsAuthError(err error) bool {
	_, ok := errors.Cause(err).(*AuthError)
	return ok
}

// FetchError is a network/service failure on a read. There is no automatic retry:
// a fresh, user-triggered request is the retry.
type FetchError struct {
	Op  string
	Err error
}

func NewFetchError(op string, err error) error {
	return &FetchError{Op: op, Err: err}
}

func (err FetchError) Error() string {
	if err.Err == nil {
		return err.Op + ": fetch failed"
	}
	return err.Op + ": " + err.Err.Error()
}

func (err FetchError) Unwrap() error { return err.Err }

func IsFetchError(err error) bool {
	_, ok := errors.Cause(err).(*FetchError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
