package service

import (
	"errors"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrNotFound       = errors.New("not found")
	ErrUnavailable    = errors.New("unavailable")
	ErrStock          = errors.New("insufficient stock")
	ErrPersistence    = errors.New("persistence error")
)

const persistenceMessage = "Something went wrong, please try again later"

// Error is a failure with a user-facing message. Err keeps the underlying cause
// for logging.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func validationError(msg string) *Error { return newError(ErrValidation, msg) }

func notFoundError(msg string) *Error { return newError(ErrNotFound, msg) }

func authError(msg string) *Error { return newError(ErrAuthentication, msg) }

// persistenceError wraps a storage failure. Its message never leaks the cause.
func persistenceError(err error) *Error {
	return &Error{Kind: ErrPersistence, Message: persistenceMessage, Err: err}
}

// StatusCode maps an error to the HTTP status the handlers respond with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to the client.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && !errors.Is(err, ErrPersistence) {
		return se.Message
	}
	return persistenceMessage
}
