// Package apperr defines the error taxonomy shared by the core and the HTTP layer.
package apperr

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Marks attached to errors with errors.Mark. Use errors.Is to test for them.
var (
	ErrValidation = errors.New("validation error")
	ErrConfig     = errors.New("configuration error")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream error")
)

// Error codes exposed in HTTP error bodies.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConfig     = "CONFIG_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeRateLimit  = "RATE_LIMIT"
	CodeInternal   = "INTERNAL_ERROR"
)

// Validation returns an error describing bad client input.
func Validation(msg string) error {
	return errors.Mark(errors.New(msg), ErrValidation)
}

// Config returns an error describing a deployment problem such as a missing credential.
func Config(msg string) error {
	return errors.Mark(errors.New(msg), ErrConfig)
}

// NotFound returns an error for an entity the upstream provider does not know.
func NotFound(msg string) error {
	return errors.Mark(errors.New(msg), ErrNotFound)
}

// Upstream wraps a transport, status or decode failure of an external provider.
// Errors that already carry a mark keep it.
func Upstream(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConfig) {
		return errors.Wrap(err, msg)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrUpstream)
}

// Code returns the public error code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConfig):
		return CodeConfig
	default:
		return CodeInternal
	}
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to clients.
// Internal details never leave the process.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return errors.UnwrapAll(err).Error()
	case errors.Is(err, ErrConfig):
		return "Missing Last.fm API key"
	default:
		return "Internal server error"
	}
}
