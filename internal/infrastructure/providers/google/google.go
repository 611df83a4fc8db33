// Package google implements the provider contract for the Gemini
// generateContent API.
package google

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
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
	providerName = "google"
	baseURL      = "https://generativelanguage.googleapis.com"
)

var modelCatalog = catalog.New(
	model.ModelInfo{
		Name:            "gemini-1.5-pro",
		DisplayName:     "Gemini 1.5 Pro",
		Provider:        providerName,
		ContextLength:   2000000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityFunctionCalling, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.00125"),
		CostPer1KOutput: decimal.RequireFromString("0.005"),
	},
	model.ModelInfo{
		Name:            "gemini-1.5-flash",
		DisplayName:     "Gemini 1.5 Flash",
		Provider:        providerName,
		ContextLength:   1000000,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityVision, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.000075"),
		CostPer1KOutput: decimal.RequireFromString("0.0003"),
	},
	model.ModelInfo{
		Name:            "gemini-pro",
		DisplayName:     "Gemini Pro",
		Provider:        providerName,
		ContextLength:   32760,
		Capabilities:    []model.Capability{model.CapabilityChat, model.CapabilityCompletion, model.CapabilityCode},
		CostPer1KInput:  decimal.RequireFromString("0.0005"),
		CostPer1KOutput: decimal.RequireFromString("0.0015"),
	},
)

type Provider struct {
	apiKey string
	client *resty.Client
}

var _ provider.Provider = (*Provider)(nil)

func New(apiKey string) *Provider {
	client := httpclients.NewClient("GoogleClient")
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

type generateContentRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	GenerationConfig  genConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64  `json:"temperature"`
	TopP            float64  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
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

// wireRequest maps chat turns onto Gemini contents. The assistant role
// is called "model" on this wire, and the system prompt rides in
// systemInstruction.
func wireRequest(req *model.GenerationRequest) generateContentRequest {
	body := generateContentRequest{
		GenerationConfig: genConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.StopSequences,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.ChatMessages() {
		role := m.Role
		switch role {
		case "system":
			continue
		case "assistant":
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	return body
}

func (p *Provider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	info, err := p.GetModelInfo(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	var out generateContentResponse
	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(wireRequest(req)).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", req.Model))
	latency := time.Since(start)
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		return nil, errorFromBody(resp.StatusCode(), resp.String())
	}
	if len(out.Candidates) == 0 {
		return nil, provider.NewError(providerName, provider.KindServer, "no candidates in response", nil)
	}

	candidate := out.Candidates[0]
	var text strings.Builder
	for _, pt := range candidate.Content.Parts {
		text.WriteString(pt.Text)
	}
	in := out.UsageMetadata.PromptTokenCount
	outTok := out.UsageMetadata.CandidatesTokenCount
	if outTok == 0 {
		outTok = provider.EstimateTokens(text.String())
	}
	return &model.GenerationResponse{
		Model:        req.Model,
		Content:      text.String(),
		Provider:     providerName,
		InputTokens:  in,
		OutputTokens: outTok,
		TotalTokens:  in + outTok,
		Cost:         provider.CalculateCost(info, in, outTok),
		LatencyMS:    latency.Milliseconds(),
		FinishReason: strings.ToLower(candidate.FinishReason),
	}, nil
}

func (p *Provider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetQueryParam("alt", "sse").
		SetBody(wireRequest(req)).
		SetDoNotParseResponse(true).
		Post(fmt.Sprintf("/v1beta/models/%s:streamGenerateContent", req.Model))
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
			var chunk generateContentResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			for _, candidate := range chunk.Candidates {
				for _, pt := range candidate.Content.Parts {
					if pt.Text == "" {
						continue
					}
					select {
					case ch <- provider.StreamChunk{Content: pt.Text}:
					case <-ctx.Done():
						return
					}
				}
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
		SetQueryParam("key", p.apiKey).
		Get("/v1beta/models")
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
