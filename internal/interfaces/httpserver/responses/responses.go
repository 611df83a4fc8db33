// Package responses maps domain errors onto HTTP status codes and a
// uniform JSON error envelope.
package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"model-manager/internal/domain/provider"
)

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	var pe *provider.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case provider.KindValidation:
		return http.StatusBadRequest
	case provider.KindNotConfigured, provider.KindModelNotFound:
		return http.StatusNotFound
	case provider.KindAuth:
		return http.StatusUnauthorized
	case provider.KindRateLimit:
		return http.StatusTooManyRequests
	case provider.KindTimeout:
		return http.StatusGatewayTimeout
	case provider.KindUnavailable, provider.KindServer:
		return http.StatusBadGateway
	case provider.KindCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBodyOf builds the envelope body without ending the request, for
// per-item errors inside an otherwise successful response.
func ErrorBodyOf(err error) ErrorBody {
	body := ErrorBody{Kind: "internal", Message: err.Error()}
	var pe *provider.Error
	if errors.As(err, &pe) {
		body.Kind = string(pe.Kind)
		body.Message = pe.Message
		body.Provider = pe.Provider
	}
	return body
}

// Error ends the request with the status and envelope derived from err.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusOf(err), ErrorResponse{Error: ErrorBodyOf(err)})
}
