// Package errs is the error taxonomy shared by the services, the live
// gateway and the REST handlers.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrPersistence     = errors.New("persistence failure")

	// Delivery errors are logged by the caller and never surfaced.
	ErrDelivery     = errors.New("delivery failed")
	ErrNotConnected = errors.New("user not connected")
)

// Invalid wraps ErrValidation with a caller-facing reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// Forbidden wraps ErrForbidden with a caller-facing reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable code used in error bodies and error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "bad_request"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// Message is safe to show to clients: store and driver detail is hidden.
func Message(err error) string {
	switch Code(err) {
	case "internal_error":
		return "internal error"
	case "unauthorized":
		return "invalid or expired credential"
	}
	return err.Error()
}
