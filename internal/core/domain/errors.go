package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error unwraps to exactly one of these so callers can
// classify with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidID          = errors.New("invalid identifier")
	ErrDependenciesNotMet = errors.New("dependencies not met")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access forbidden")
	ErrInternal           = errors.New("internal error")
)

// Auth errors.
var (
	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid credentials"}
	ErrUserNotFound       = &Error{Kind: ErrNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrUserExists         = &Error{Kind: ErrConflict, Code: "USER_EXISTS", Message: "user already exists"}
)

// Error is a classified failure carrying the machine-readable code rendered
// in the response envelope.
type Error struct {
	Kind    error
	Code    string
	Message string
	Fields  []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// Is matches two *Error values by code so package-level errors such as
// ErrUserNotFound compare equal to copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Cause returns the wrapped internal error, if any.
func (e *Error) Cause() error { return e.cause }

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// NotFound reports a missing document of the named resource, e.g. SERVICE_NOT_FOUND.
func NotFound(singular string) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Code:    singular + "_NOT_FOUND",
		Message: humanize(singular) + " not found",
	}
}

// MissingFields reports absent required payload fields.
func MissingFields(fields []string) *Error {
	return &Error{
		Kind:    ErrMissingFields,
		Code:    "MISSING_REQUIRED_FIELDS",
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// Invalid reports a malformed input; what becomes the INVALID_<WHAT> code.
func Invalid(what, message string, fields ...string) *Error {
	return &Error{
		Kind:    ErrValidation,
		Code:    "INVALID_" + what,
		Message: message,
		Fields:  fields,
	}
}

// InvalidID reports an identifier that cannot name a stored document.
func InvalidID(id string) *Error {
	return &Error{
		Kind:    ErrInvalidID,
		Code:    "INVALID_ID",
		Message: fmt.Sprintf("invalid id %q", id),
	}
}

// DependenciesNotMet reports inactive dependencies blocking an activation.
func DependenciesNotMet(ids []string) *Error {
	return &Error{
		Kind:    ErrDependenciesNotMet,
		Code:    "DEPENDENCIES_NOT_MET",
		Message: "dependencies must be active before activation: " + strings.Join(ids, ", "),
		Fields:  ids,
	}
}

// Failed wraps an unclassified failure of op on the named resource, e.g.
// SERVICE_CREATE_FAILED. The cause is kept for logging only.
func Failed(singular, op string, cause error) *Error {
	return &Error{
		Kind:    ErrInternal,
		Code:    fmt.Sprintf("%s_%s_FAILED", singular, strings.ToUpper(op)),
		Message: fmt.Sprintf("failed to %s %s", strings.ToLower(op), humanize(singular)),
		cause:   cause,
	}
}

func humanize(singular string) string {
	return strings.ReplaceAll(strings.ToLower(singular), "_", " ")
}
