// Package errors provides the structured error kinds shared by the data,
// clustering and HTTP layers. Callers check kinds with Is instead of
// matching message strings, and the API maps kinds to status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError indicates invalid input from a caller (query params, body).
type ValidationError struct {
	Op  string // where it happened (package.Function)
	Msg string // human friendly message
	Err error  // underlying cause (optional)
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("validation", e.Op, e.Msg, e.Err)
}

func (e *ValidationError) Unwrap() error     { return e.Err }
func (e *ValidationError) Operation() string { return e.Op }
func (e *ValidationError) Message() string   { return e.Msg }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// NotFoundError means the requested county, file or location does not exist.
type NotFoundError struct {
	Op  string
	Msg string
	Err error
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("not found", e.Op, e.Msg, e.Err)
}

func (e *NotFoundError) Unwrap() error     { return e.Err }
func (e *NotFoundError) Operation() string { return e.Op }
func (e *NotFoundError) Message() string   { return e.Msg }

func NewNotFound(op, msg string, err error) error {
	return &NotFoundError{Op: op, Msg: msg, Err: err}
}

// DataError covers CSV parsing and data directory IO failures.
type DataError struct {
	Op   string
	Msg  string
	Path string
	Err  error
}

func (e *DataError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", e.Msg, e.Path)
	}
	return format("data", e.Op, msg, e.Err)
}

func (e *DataError) Unwrap() error     { return e.Err }
func (e *DataError) Operation() string { return e.Op }
func (e *DataError) Message() string   { return e.Msg }

func NewData(op, path, msg string, err error) error {
	return &DataError{Op: op, Path: path, Msg: msg, Err: err}
}

// DBError represents refresh-log database failures.
type DBError struct {
	Op  string
	Msg string
	Err error
}

func (e *DBError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("db", e.Op, e.Msg, e.Err)
}

func (e *DBError) Unwrap() error     { return e.Err }
func (e *DBError) Operation() string { return e.Op }
func (e *DBError) Message() string   { return e.Msg }

func NewDB(op, msg string, err error) error { return &DBError{Op: op, Msg: msg, Err: err} }

// ExternalAPIError represents failures in external services (OpenAI, Google Maps, Redis).
type ExternalAPIError struct {
	Op     string
	Msg    string
	Err    error
	System string // e.g. "google" / "openai" / "redis"
}

func (e *ExternalAPIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	return format(sys, e.Op, e.Msg, e.Err)
}

func (e *ExternalAPIError) Unwrap() error     { return e.Err }
func (e *ExternalAPIError) Operation() string { return e.Op }
func (e *ExternalAPIError) Message() string   { return e.Msg }

func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

// AuthError is returned when an API key is missing or unknown.
type AuthError struct {
	Op  string
	Msg string
}

func (e *AuthError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return format("auth", e.Op, e.Msg, nil)
}

func (e *AuthError) Operation() string { return e.Op }
func (e *AuthError) Message() string   { return e.Msg }

func NewAuth(op, msg string) error { return &AuthError{Op: op, Msg: msg} }

func format(kind, op, msg string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", kind, op, msg, err)
	}
	return fmt.Sprintf("%s: %s: %s", kind, op, msg)
}

// Kind sentinels for Is.
// Example: if errors.Is(err, errors.ErrNotFound) { ... }
var (
	ErrValidation = &ValidationError{}
	ErrNotFound   = &NotFoundError{}
	ErrData       = &DataError{}
	ErrDB         = &DBError{}
	ErrExternal   = &ExternalAPIError{}
	ErrAuth       = &AuthError{}
)

// Is reports whether err has the same kind as target, using errors.As
// for the kinds above and errors.Is for anything else.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *ValidationError:
		var v *ValidationError
		return errors.As(err, &v)
	case *NotFoundError:
		var n *NotFoundError
		return errors.As(err, &n)
	case *DataError:
		var d *DataError
		return errors.As(err, &d)
	case *DBError:
		var d *DBError
		return errors.As(err, &d)
	case *ExternalAPIError:
		var ex *ExternalAPIError
		return errors.As(err, &ex)
	case *AuthError:
		var a *AuthError
		return errors.As(err, &a)
	default:
		return errors.Is(err, target)
	}
}

// HTTPStatus maps an error kind to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrValidation):
		return http.StatusBadRequest
	case Is(err, ErrAuth):
		return http.StatusUnauthorized
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the caller-facing message of a typed error, falling
// back to a generic text for untyped ones.
func PublicMessage(err error) string {
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}
	return "internal error"
}
