package pkg

import (
	"errors"
	"net/http"
)

// Kind classifies failures independently of their cause.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "service_unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// AppError carries a Kind, a message safe to show to callers and the underlying cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *AppError { return Wrap(KindNotFound, msg, nil) }
func Forbidden(msg string) *AppError { return Wrap(KindForbidden, msg, nil) }
func InvalidInput(msg string) *AppError { return Wrap(KindInvalidInput, msg, nil) }
func Unauthorized(msg string) *AppError { return Wrap(KindUnauthorized, msg, nil) }
func RateLimited(msg string) *AppError { return Wrap(KindRateLimited, msg, nil) }

func Conflict(msg string, err error) *AppError {
	return Wrap(KindConflict, msg, err)
}

func Unavailable(err error) *AppError {
	return Wrap(KindUnavailable, "service temporarily unavailable", err)
}

func Internal(err error) *AppError {
	return Wrap(KindInternal, "internal server error", err)
}

// KindOf reports the Kind of err; errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage never exposes the wrapped cause.
func PublicMessage(err error) string {
	var ae *AppError
	if !errors.As(err, &ae) || ae.Kind == KindInternal {
		return "internal server error"
	}
	return ae.Message
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
