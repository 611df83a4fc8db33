package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Capability identifies one thing a model can do.
type Capability string

const (
	CapabilityChat            Capability = "chat"
	CapabilityCompletion      Capability = "completion"
	CapabilityVision          Capability = "vision"
	CapabilityFunctionCalling Capability = "function_calling"
	CapabilityCode            Capability = "code"
)

// Capabilities is the closed set of valid capability values.
var Capabilities = []Capability{
	CapabilityChat,
	CapabilityCompletion,
	CapabilityVision,
	CapabilityFunctionCalling,
	CapabilityCode,
}

// Valid reports whether c is a member of the closed capability set.
func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// ModelInfo describes one model a provider exposes. Immutable once produced.
type ModelInfo struct {
	Name            string            `json:"name"`
	DisplayName     string            `json:"display_name"`
	Provider        string            `json:"provider"`
	ContextLength   int               `json:"context_length"`
	Capabilities    []Capability      `json:"capabilities"`
	CostPer1KInput  decimal.Decimal   `json:"cost_per_1k_input"`
	CostPer1KOutput decimal.Decimal   `json:"cost_per_1k_output"`
	IsLocal         bool              `json:"is_local"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HasCapability reports whether the model advertises the given capability.
func (m ModelInfo) HasCapability(c Capability) bool {
	for _, cap := range m.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Message is a single role/content turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest carries one generation call. Constructed at the
// orchestration boundary and never mutated afterwards.
type GenerationRequest struct {
	Model         string            `json:"model"`
	Provider      string            `json:"provider"`
	Prompt        string            `json:"prompt,omitempty"`
	Messages      []Message         `json:"messages,omitempty"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	Temperature   float64           `json:"temperature"`
	TopP          float64           `json:"top_p,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	SystemPrompt  string            `json:"system_prompt,omitempty"`
	StopSequences []string          `json:"stop_sequences,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DefaultTemperature is applied when a request leaves temperature unset.
const DefaultTemperature = 0.7

// ChatMessages flattens the request into an ordered message list,
// prepending the system prompt when present. Exactly one of Prompt and
// Messages feeds the user turns.
func (r *GenerationRequest) ChatMessages() []Message {
	messages := make([]Message, 0, len(r.Messages)+2)
	if r.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: r.SystemPrompt})
	}
	if len(r.Messages) > 0 {
		messages = append(messages, r.Messages...)
	} else if r.Prompt != "" {
		messages = append(messages, Message{Role: "user", Content: r.Prompt})
	}
	return messages
}

// GenerationResponse is produced exactly once per successful call.
type GenerationResponse struct {
	Model        string            `json:"model"`
	Content      string            `json:"content"`
	Provider     string            `json:"provider"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`
	TotalTokens  int               `json:"total_tokens"`
	Cost         decimal.Decimal   `json:"cost"`
	LatencyMS    int64             `json:"latency_ms"`
	FinishReason string            `json:"finish_reason,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// UsageStats aggregates ledger records over a model or provider group.
// Always recomputed from the ledger, never hand-constructed.
type UsageStats struct {
	Model             string          `json:"model,omitempty"`
	Provider          string          `json:"provider,omitempty"`
	TotalRequests     int64           `json:"total_requests"`
	TotalInputTokens  int64           `json:"total_input_tokens"`
	TotalOutputTokens int64           `json:"total_output_tokens"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	AverageLatencyMS  float64         `json:"average_latency_ms"`
	ErrorCount        int64           `json:"error_count"`
	LastUsed          *time.Time      `json:"last_used,omitempty"`
}
