// Package requests holds the HTTP request bodies and their mapping onto
// domain types.
package requests

import (
	"model-manager/internal/domain/model"
	"model-manager/internal/orchestrator"
)

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	TaskType      string            `json:"task_type,omitempty"`
	Prompt        string            `json:"prompt,omitempty"`
	Messages      []model.Message   `json:"messages,omitempty"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TopP          float64           `json:"top_p,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	SystemPrompt  string            `json:"system_prompt,omitempty"`
	StopSequences []string          `json:"stop_sequences,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ToDomain applies defaults and produces the immutable domain request.
func (r *GenerateRequest) ToDomain() *model.GenerationRequest {
	temperature := model.DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	return &model.GenerationRequest{
		Provider:      r.Provider,
		Model:         r.Model,
		Prompt:        r.Prompt,
		Messages:      r.Messages,
		MaxTokens:     r.MaxTokens,
		Temperature:   temperature,
		TopP:          r.TopP,
		Stream:        r.Stream,
		SystemPrompt:  r.SystemPrompt,
		StopSequences: r.StopSequences,
		Metadata:      r.Metadata,
	}
}

// CompareRequest is the body of POST /v1/compare.
type CompareRequest struct {
	Prompt       string                     `json:"prompt,omitempty"`
	Messages     []model.Message            `json:"messages,omitempty"`
	Pairs        []orchestrator.ComparePair `json:"pairs"`
	MaxTokens    int                        `json:"max_tokens,omitempty"`
	Temperature  *float64                   `json:"temperature,omitempty"`
	SystemPrompt string                     `json:"system_prompt,omitempty"`
}

func (r *CompareRequest) ToDomain() *model.GenerationRequest {
	temperature := model.DefaultTemperature
	if r.Temperature != nil {
		temperature = *r.Temperature
	}
	return &model.GenerationRequest{
		Prompt:       r.Prompt,
		Messages:     r.Messages,
		MaxTokens:    r.MaxTokens,
		Temperature:  temperature,
		SystemPrompt: r.SystemPrompt,
	}
}

// SaveConversationRequest is the body of POST /v1/conversations.
type SaveConversationRequest struct {
	Title    string          `json:"title,omitempty"`
	Model    string          `json:"model,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Messages []model.Message `json:"messages"`
}

// SetPreferenceRequest is the body of PUT /v1/preferences/:task_type.
type SetPreferenceRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// PutCredentialRequest is the body of PUT /v1/credentials/:provider.
type PutCredentialRequest struct {
	APIKey string `json:"api_key"`
}
