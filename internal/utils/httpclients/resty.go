package httpclients

import (
	"context"
	"time"

	"resty.dev/v3"

	"model-manager/internal/infrastructure/logger"
)

type clientStartsAt struct{}

// NewClient builds a resty client that logs every backend exchange at
// debug level with latency and status.
func NewClient(clientName string) *resty.Client {
	client := resty.New()
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), clientStartsAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()
		start, _ := r.Request.Context().Value(clientStartsAt{}).(time.Time)

		log.Debug().
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("path", r.Request.RawRequest.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("HTTP client request")
		return nil
	})
	return client
}
