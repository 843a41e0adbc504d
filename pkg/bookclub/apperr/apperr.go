// Package apperr defines the error kinds shared by the club, auth and
// event services, and their mapping to HTTP status codes. Services return
// these sentinels (usually wrapped with %w) and handlers match them with
// errors.Is, so a violated invariant is always visible to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrForbidden means a permission rule was violated
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means a duplicate membership/request, or a lost race
	ErrConflict = errors.New("conflict")
	// ErrNotFound means no such membership, request, event or participation
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation is not valid for the current status
	ErrInvalidState = errors.New("invalid state")
	// ErrCapacityExceeded means the event is full
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrLocked means the account lockout window is active
	ErrLocked = errors.New("account locked")
)

// Forbiddenf wraps ErrForbidden with a descriptive message
func Forbiddenf(format string, args ...interface{}) error {
	return wrapf(ErrForbidden, format, args...)
}

// Conflictf wraps ErrConflict with a descriptive message
func Conflictf(format string, args ...interface{}) error {
	return wrapf(ErrConflict, format, args...)
}

// NotFoundf wraps ErrNotFound with a descriptive message
func NotFoundf(format string, args ...interface{}) error {
	return wrapf(ErrNotFound, format, args...)
}

// InvalidStatef wraps ErrInvalidState with a descriptive message
func InvalidStatef(format string, args ...interface{}) error {
	return wrapf(ErrInvalidState, format, args...)
}

func wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Status maps an error kind to an HTTP status code. Unrecognized errors
// map to 500 so storage failures are never mistaken for domain outcomes.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, ErrLocked):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
