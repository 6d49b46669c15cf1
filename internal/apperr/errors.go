// Package apperr defines the error kinds surfaced by the service layer.
//
// Every error returned across a package boundary either is, or wraps, one
// of the sentinel kinds below so transports can map it with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication required")
	ErrAuthorization  = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("too many requests")
	ErrInternal       = errors.New("internal server error")
)

// Error carries a kind, a caller-facing message and an optional cause.
// The cause is never rendered to clients.
type Error struct {
	Kind    error
	Message string
	Details map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

// ValidationFields builds a validation error with per-field messages.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: "Validation failed", Details: fields}
}

func Authentication(format string, args ...any) *Error {
	return newError(ErrAuthentication, format, args...)
}

func Authorization(format string, args ...any) *Error {
	return newError(ErrAuthorization, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(ErrConflict, format, args...)
}

// NotFound reports a missing entity, e.g. NotFound("Reward").
func NotFound(entity string) *Error {
	return &Error{Kind: ErrNotFound, Message: entity + " not found"}
}

func RateLimited(format string, args ...any) *Error {
	return newError(ErrRateLimited, format, args...)
}

// Internal wraps an unexpected failure. op names the failing operation for logs.
func Internal(op string, cause error) *Error {
	return &Error{Kind: ErrInternal, Message: op, Cause: cause}
}

// Kind returns the sentinel kind of err, treating unknown errors as internal.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrAuthentication, ErrAuthorization, ErrConflict, ErrNotFound, ErrRateLimited, ErrInternal} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

func IsValidation(err error) bool     { return errors.Is(err, ErrValidation) }
func IsAuthentication(err error) bool { return errors.Is(err, ErrAuthentication) }
func IsAuthorization(err error) bool  { return errors.Is(err, ErrAuthorization) }
func IsConflict(err error) bool       { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool       { return errors.Is(err, ErrNotFound) }

// HTTPStatus maps an error onto its response status code.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthentication:
		return http.StatusUnauthorized
	case ErrAuthorization:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to a client.
// Internal errors always collapse to a generic message.
func PublicMessage(err error) string {
	kind := Kind(err)
	if kind == ErrInternal {
		return "Internal server error"
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return kind.Error()
}

// FieldDetails returns per-field validation messages, if any.
func FieldDetails(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
