// Package anthropic implements the provider contract for the Anthropic
// messages API.
package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"resty.dev/v3"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/providers/catalog"
	"model-manager/internal/utils/httpclients"
)

const (
	providerName = "anthropic"
	baseURL      = "https://api.anthropic.com"
	apiVersion   = "2023-06-01"

	// The messages API requires max_tokens; applied when the request
	// leaves it unset.
	defaultMaxTokens = 4096
)

var modelCatalog = catalog.New(
	model.ModelInfo{
		Name:            "claude-3-5-sonnet-20241022",
		DisplayName:     "Claude 3.5 Sonnet",
		Provider:        providerName,
		ContextLength:   200000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.003"),
		CostPer1KOutput: decimal.RequireFromString("0.015"),
	},
	model.ModelInfo{
		Name:            "claude-3-opus-20240229",
		DisplayName:     "Claude 3 Opus",
		Provider:        providerName,
		ContextLength:   200000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.015"),
		CostPer1KOutput: decimal.RequireFromString("0.075"),
	},
	model.ModelInfo{
		Name:            "claude-3-haiku-20240307",
		DisplayName:     "Claude 3 Haiku",
		Provider:        providerName,
		ContextLength:   200000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.00025"),
		CostPer1KOutput: decimal.RequireFromString("0.00125"),
	},
)

type Provider struct {
	apiKey string
	client *resty.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(apiKey string) *Provider {
	client := httpclients.NewClient("AnthropicClient")
	client.SetBaseURL(baseURL)
	return &Provider{apiKey: apiKey, client: client}
}

// NewWithBaseURL is used by tests to point the provider at a stub server.
func NewWithBaseURL(apiKey, base string) *Provider {
	p := New(apiKey)
	p.client.SetBaseURL(strings.TrimRight(base, "/"))
	return p
}

func (p *Provider) Name() string { return providerName }

type messagesRequest struct {
	Model         string          `json:"model"`
	Messages      []model.Message `json:"messages"`
	System        string          `json:"system,omitempty"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   float64         `json:"temperature"`
	TopP          float64         `json:"top_p,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) newRequest(ctx context.Context) *resty.Request {
	return p.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", p.apiKey).
		SetHeader("Anthropic-Version", apiVersion)
}

func (p *Provider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return modelCatalog.List(), nil
}

func (p *Provider) GetModelInfo(ctx context.Context, name string) (model.ModelInfo, error) {
	info, ok := modelCatalog.Get(name)
	if !ok {
		return model.ModelInfo{}, provider.NewModelNotFoundError(providerName, name)
	}
	return info, nil
}

// wireRequest splits the flattened message list back into the system
// field plus user/assistant turns, which is how the messages API wants it.
func wireRequest(req *model.GenerationRequest) messagesRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body := messagesRequest{
		Model:         req.Model,
		System:        req.SystemPrompt,
		MaxTokens:     maxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.StopSequences,
	}
	for _, m := range req.ChatMessages() {
		if m.Role == "system" {
			continue
		}
		body.Messages = append(body.Messages, m)
	}
	return body
}

func (p *Provider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	info, err := p.GetModelInfo(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	var out messagesResponse
	start := time.Now()
	resp, err := p.newRequest(ctx).SetBody(wireRequest(req)).SetResult(&out).Post("/v1/messages")
	latency := time.Since(start)
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		return nil, errorFromBody(resp.StatusCode(), resp.String())
	}

	var content strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	in, outTok := out.Usage.InputTokens, out.Usage.OutputTokens
	return &model.GenerationResponse{
		Model:        req.Model,
		Content:      content.String(),
		Provider:     providerName,
		InputTokens:  in,
		OutputTokens: outTok,
		TotalTokens:  in + outTok,
		Cost:         provider.CalculateCost(info, in, outTok),
		LatencyMS:    latency.Milliseconds(),
		FinishReason: out.StopReason,
	}, nil
}

// streamEvent is the subset of SSE payloads the reader cares about.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	body := wireRequest(req)
	body.Stream = true

	resp, err := p.newRequest(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post("/v1/messages")
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		defer resp.RawResponse.Body.Close()
		return nil, errorFromBody(resp.StatusCode(), "streaming request failed")
	}

	ch := make(chan provider.StreamChunk, 100)
	go func() {
		defer close(ch)
		defer resp.RawResponse.Body.Close()

		scanner := bufio.NewScanner(resp.RawResponse.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var event streamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				continue
			}
			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text == "" {
					continue
				}
				select {
				case ch <- provider.StreamChunk{Content: event.Delta.Text}:
				case <-ctx.Done():
					return
				}
			case "error":
				ch <- provider.StreamChunk{Err: provider.NewError(providerName, provider.KindServer, event.Error.Message, nil)}
				return
			case "message_stop":
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			ch <- provider.StreamChunk{Err: provider.MapDispatchError(providerName, err)}
		}
	}()
	return ch, nil
}

func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", p.apiKey).
		SetHeader("Anthropic-Version", apiVersion).
		Get("/v1/models")
	return err == nil && !resp.IsError()
}

func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	start := time.Now()
	available := p.IsAvailable(ctx)
	return provider.HealthStatus{
		Available: available,
		Detail: map[string]any{
			"latency_ms":   time.Since(start).Milliseconds(),
			"models_count": modelCatalog.Len(),
		},
	}
}

func errorFromBody(status int, body string) error {
	var wire apiError
	msg := body
	if err := json.Unmarshal([]byte(body), &wire); err == nil && wire.Error.Message != "" {
		msg = wire.Error.Message
	}
	return provider.NewError(providerName, provider.ClassifyHTTPStatus(status), msg, nil)
}
