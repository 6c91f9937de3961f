package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by repositories and services.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateLabel = errors.New("duplicate label id")
	ErrHasDependents  = errors.New("record has dependents")
	ErrTooManyImports = errors.New("too many concurrent imports, please try again later")
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindMalformed Kind = iota + 1
	KindCapacity
	KindInvalid
	KindConflict
	KindNotFound
	KindForbidden
	KindBusy
	KindPersistence
)

// Error is a request-level failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Code overrides the HTTP status implied by Kind when non-zero.
	Code int
	// Dependents is the number of records blocking a delete, when known.
	Dependents int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindMalformed, KindInvalid:
		return http.StatusBadRequest
	case KindCapacity:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func invalid(msg string) *Error  { return &Error{Kind: KindInvalid, Message: msg} }
func conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }
func notFound() *Error           { return &Error{Kind: KindNotFound, Message: "Not found", Err: ErrNotFound} }

func persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// notFoundOr wraps a repository error: ErrNotFound becomes a 404, anything else a persistence failure.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return notFound()
	}
	return persistence(msg, err)
}
