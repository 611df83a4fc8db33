package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a generation failure for retry and transport mapping.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotConfigured ErrorKind = "provider_not_configured"
	KindModelNotFound ErrorKind = "model_not_found"
	KindAuth          ErrorKind = "auth"
	KindRateLimit     ErrorKind = "rate_limit"
	KindTimeout       ErrorKind = "timeout"
	KindUnavailable   ErrorKind = "unavailable"
	KindServer        ErrorKind = "server"
	KindStorage       ErrorKind = "storage"
	KindCanceled      ErrorKind = "canceled"
)

// Error is the typed failure every provider and the orchestrator surface.
type Error struct {
	Provider  string
	Kind      ErrorKind
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a provider error; transient kinds are marked retryable.
func NewError(providerName string, kind ErrorKind, message string, cause error) *Error {
	return &Error{
		Provider:  providerName,
		Kind:      kind,
		Message:   message,
		Retryable: kind == KindTimeout || kind == KindUnavailable || kind == KindRateLimit || kind == KindServer,
		Cause:     cause,
	}
}

// NewValidationError reports a malformed request. Never dispatched, never retried.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotConfiguredError reports a lookup for an unregistered provider name.
func NewNotConfiguredError(providerName string) *Error {
	return &Error{Provider: providerName, Kind: KindNotConfigured, Message: "provider not configured"}
}

// NewModelNotFoundError reports a reachable provider without the named model.
func NewModelNotFoundError(providerName, modelName string) *Error {
	return &Error{Provider: providerName, Kind: KindModelNotFound, Message: fmt.Sprintf("model not found: %s", modelName)}
}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// MapDispatchError normalizes backend transport failures into the taxonomy.
// Context errors become timeout/canceled; anything untyped is treated as an
// unreachable backend.
func MapDispatchError(providerName string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(providerName, KindTimeout, "backend call timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Provider: providerName, Kind: KindCanceled, Message: "request canceled", Cause: err}
	}
	return NewError(providerName, KindUnavailable, err.Error(), err)
}

// ClassifyHTTPStatus maps a backend HTTP status to an error kind.
func ClassifyHTTPStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindModelNotFound
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		if status >= 500 {
			return KindServer
		}
		return KindValidation
	}
}
