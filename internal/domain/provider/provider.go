package provider

import (
	"context"

	"model-manager/internal/domain/model"
)

// Provider is the capability contract every backend family implements.
// Each implementation owns its own connection and credential state.
type Provider interface {
	// Name returns the immutable provider name (e.g. "openai", "ollama").
	Name() string

	// ListModels returns all models the backend currently exposes.
	ListModels(ctx context.Context) ([]model.ModelInfo, error)

	// GetModelInfo returns the named model or a model_not_found error.
	GetModelInfo(ctx context.Context, name string) (model.ModelInfo, error)

	// Generate performs a single synchronous generation call. Latency is
	// measured around the backend call only; token counts are backend
	// reported when available, estimated otherwise.
	Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error)

	// GenerateStream performs a streaming generation call. The returned
	// channel is closed when the backend stream ends or ctx is canceled.
	GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan StreamChunk, error)

	// IsAvailable is a cheap reachability probe, no model listing.
	IsAvailable(ctx context.Context) bool

	// HealthCheck reports reachability plus provider-specific detail.
	// Cloud providers verify credential validity without a billed call.
	HealthCheck(ctx context.Context) HealthStatus
}

// StreamChunk is one fragment of a streaming generation. Err is set on the
// final chunk when the stream terminated abnormally.
type StreamChunk struct {
	Content string
	Err     error
}

// HealthStatus is the result of a provider health check.
type HealthStatus struct {
	Available bool           `json:"available"`
	Detail    map[string]any `json:"detail,omitempty"`
}
