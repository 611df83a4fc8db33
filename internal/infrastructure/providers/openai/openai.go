// Package openai implements the provider contract for the OpenAI API.
package openai

import (
	"context"
	"errors"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/providers/catalog"
)

const providerName = "openai"

var modelCatalog = catalog.New(
	model.ModelInfo{
		Name:            "gpt-4o",
		DisplayName:     "GPT-4o",
		Provider:        providerName,
		ContextLength:   128000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.0025"),
		CostPer1KOutput: decimal.RequireFromString("0.01"),
	},
	model.ModelInfo{
		Name:            "gpt-4o-mini",
		DisplayName:     "GPT-4o Mini",
		Provider:        providerName,
		ContextLength:   128000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.00015"),
		CostPer1KOutput: decimal.RequireFromString("0.0006"),
	},
	model.ModelInfo{
		Name:            "gpt-4-turbo",
		DisplayName:     "GPT-4 Turbo",
		Provider:        providerName,
		ContextLength:   128000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.01"),
		CostPer1KOutput: decimal.RequireFromString("0.03"),
	},
	model.ModelInfo{
		Name:            "gpt-3.5-turbo",
		DisplayName:     "GPT-3.5 Turbo",
		Provider:        providerName,
		ContextLength:   16385,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.0005"),
		CostPer1KOutput: decimal.RequireFromString("0.0015"),
	},
)

type Provider struct {
	client *goopenai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New builds an OpenAI provider. orgID may be empty.
func New(apiKey, orgID string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if orgID != "" {
		cfg.OrgID = orgID
	}
	return &Provider{client: goopenai.NewClientWithConfig(cfg)}
}

// NewWithBaseURL is used by tests to point the provider at a stub server.
func NewWithBaseURL(apiKey, base string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = base
	return &Provider{client: goopenai.NewClientWithConfig(cfg)}
}

func (p *Provider) Name() string { return providerName }

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

func (p *Provider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	info, err := p.GetModelInfo(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, p.chatRequest(req))
	latency := time.Since(start)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, provider.NewError(providerName, provider.KindServer, "empty choices in completion response", nil)
	}

	choice := resp.Choices[0]
	inputTokens := resp.Usage.PromptTokens
	outputTokens := resp.Usage.CompletionTokens
	return &model.GenerationResponse{
		Model:        req.Model,
		Content:      choice.Message.Content,
		Provider:     providerName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Cost:         provider.CalculateCost(info, inputTokens, outputTokens),
		LatencyMS:    latency.Milliseconds(),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (p *Provider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	body := p.chatRequest(req)
	body.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, body)
	if err != nil {
		return nil, mapError(err)
	}

	ch := make(chan provider.StreamChunk, 100)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					ch <- provider.StreamChunk{Err: mapError(err)}
				}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case ch <- provider.StreamChunk{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *Provider) chatRequest(req *model.GenerationRequest) goopenai.ChatCompletionRequest {
	messages := req.ChatMessages()
	wire := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    wire,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		Stop:        req.StopSequences,
	}
}

func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	start := time.Now()
	_, err := p.client.ListModels(ctx)
	detail := map[string]any{
		"latency_ms":   time.Since(start).Milliseconds(),
		"models_count": modelCatalog.Len(),
	}
	if err != nil {
		detail["error"] = mapError(err).Error()
		return provider.HealthStatus{Available: false, Detail: detail}
	}
	return provider.HealthStatus{Available: true, Detail: detail}
}

// mapError lifts go-openai errors into the domain taxonomy using the HTTP
// status carried by APIError when present.
func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return provider.NewError(providerName, provider.ClassifyHTTPStatus(apiErr.HTTPStatusCode), apiErr.Message, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return provider.NewError(providerName, provider.ClassifyHTTPStatus(reqErr.HTTPStatusCode), reqErr.Error(), err)
	}
	return provider.MapDispatchError(providerName, err)
}
