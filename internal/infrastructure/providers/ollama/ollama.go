// Package ollama implements the provider contract for a local Ollama
// daemon. Models are enumerated from the daemon and never billed.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/logger"
	"model-manager/internal/utils/httpclients"
)

const providerName = "ollama"

// Assumed context window when the daemon does not report one.
const defaultContextLength = 4096

type Provider struct {
	host   string
	client *resty.Client
}

var _ provider.Provider = (*Provider)(nil)

// New builds an Ollama provider against the given host, e.g.
// http://localhost:11434.
func New(host string, timeout time.Duration) *Provider {
	client := httpclients.NewClient("OllamaClient")
	client.SetBaseURL(strings.TrimRight(host, "/"))
	client.SetTimeout(timeout)
	client.SetAllowMethodDeletePayload(true)
	return &Provider{host: host, client: client}
}

func (p *Provider) Name() string { return providerName }

type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		Digest     string `json:"digest"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  chatOptions     `json:"options"`
}

type chatOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	TotalDuration   int64  `json:"total_duration"`
	LoadDuration    int64  `json:"load_duration"`
}

func (p *Provider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var tags tagsResponse
	resp, err := p.client.R().SetContext(ctx).SetResult(&tags).Get("/api/tags")
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		return nil, provider.NewError(providerName, provider.ClassifyHTTPStatus(resp.StatusCode()), resp.String(), nil)
	}

	models := make([]model.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		base := strings.SplitN(m.Name, ":", 2)[0]
		models = append(models, model.ModelInfo{
			Name:          m.Name,
			DisplayName:   displayName(base),
			Provider:      providerName,
			ContextLength: defaultContextLength,
			Capabilities:  inferCapabilities(base),
			IsLocal:       true,
			Metadata: map[string]string{
				"size":        strconv.FormatInt(m.Size, 10),
				"digest":      m.Digest,
				"modified_at": m.ModifiedAt,
			},
		})
	}
	return models, nil
}

func displayName(base string) string {
	if base == "" {
		return base
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

func inferCapabilities(name string) []model.Capability {
	caps := []model.Capability{model.CapabilityChat, model.CapabilityCompletion}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "code") {
		caps = append(caps, model.CapabilityCode)
	}
	if strings.Contains(lower, "vision") || strings.Contains(lower, "llava") {
		caps = append(caps, model.CapabilityVision)
	}
	return caps
}

func (p *Provider) GetModelInfo(ctx context.Context, name string) (model.ModelInfo, error) {
	models, err := p.ListModels(ctx)
	if err != nil {
		return model.ModelInfo{}, err
	}
	for _, m := range models {
		if m.Name == name || strings.HasPrefix(m.Name, name+":") {
			return m, nil
		}
	}
	return model.ModelInfo{}, provider.NewModelNotFoundError(providerName, name)
}

func (p *Provider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	body := chatRequest{
		Model:    req.Model,
		Messages: req.ChatMessages(),
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.StopSequences,
		},
	}

	var out chatResponse
	start := time.Now()
	resp, err := p.client.R().SetContext(ctx).SetBody(body).SetResult(&out).Post("/api/chat")
	latency := time.Since(start)
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		return nil, provider.NewError(providerName, provider.ClassifyHTTPStatus(resp.StatusCode()), resp.String(), nil)
	}

	inputTokens := out.PromptEvalCount
	if inputTokens == 0 {
		inputTokens = provider.EstimateMessageTokens(body.Messages)
	}
	outputTokens := out.EvalCount
	if outputTokens == 0 {
		outputTokens = provider.EstimateTokens(out.Message.Content)
	}

	info := model.ModelInfo{Name: req.Model, Provider: providerName, IsLocal: true}
	return &model.GenerationResponse{
		Model:        req.Model,
		Content:      out.Message.Content,
		Provider:     providerName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		Cost:         provider.CalculateCost(info, inputTokens, outputTokens),
		LatencyMS:    latency.Milliseconds(),
		FinishReason: out.DoneReason,
		Metadata: map[string]string{
			"total_duration": strconv.FormatInt(out.TotalDuration, 10),
			"load_duration":  strconv.FormatInt(out.LoadDuration, 10),
		},
	}, nil
}

func (p *Provider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	body := chatRequest{
		Model:    req.Model,
		Messages: req.ChatMessages(),
		Stream:   true,
		Options: chatOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.StopSequences,
		},
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		defer resp.RawResponse.Body.Close()
		return nil, provider.NewError(providerName, provider.ClassifyHTTPStatus(resp.StatusCode()), "streaming request failed", nil)
	}

	ch := make(chan provider.StreamChunk, 100)
	go p.readStream(ctx, resp, ch)
	return ch, nil
}

// readStream decodes the daemon's newline-delimited JSON chunks until the
// final done marker or cancellation.
func (p *Provider) readStream(ctx context.Context, resp *resty.Response, ch chan<- provider.StreamChunk) {
	defer close(ch)
	defer resp.RawResponse.Body.Close()

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var chunk chatResponse
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			select {
			case ch <- provider.StreamChunk{Content: chunk.Message.Content}:
			case <-ctx.Done():
				return
			}
		}
		if chunk.Done {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		ch <- provider.StreamChunk{Err: provider.MapDispatchError(providerName, err)}
	}
}

func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	return err == nil && !resp.IsError()
}

func (p *Provider) HealthCheck(ctx context.Context) provider.HealthStatus {
	models, err := p.ListModels(ctx)
	if err != nil {
		return provider.HealthStatus{
			Available: false,
			Detail:    map[string]any{"host": p.host, "error": err.Error()},
		}
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	return provider.HealthStatus{
		Available: true,
		Detail: map[string]any{
			"host":         p.host,
			"models_count": len(models),
			"models":       names,
		},
	}
}

// PullProgress is one progress update of a model download.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// PullModel downloads a model into the daemon, reporting progress until
// the download finishes or ctx is canceled.
func (p *Provider) PullModel(ctx context.Context, name string) (<-chan PullProgress, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": name, "stream": true}).
		SetDoNotParseResponse(true).
		Post("/api/pull")
	if err != nil {
		return nil, provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		defer resp.RawResponse.Body.Close()
		return nil, provider.NewError(providerName, provider.ClassifyHTTPStatus(resp.StatusCode()), fmt.Sprintf("pull %s failed", name), nil)
	}

	ch := make(chan PullProgress, 16)
	go func() {
		defer close(ch)
		defer resp.RawResponse.Body.Close()
		scanner := bufio.NewScanner(resp.RawResponse.Body)
		for scanner.Scan() {
			var progress PullProgress
			if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
				continue
			}
			select {
			case ch <- progress:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// DeleteModel removes a model from the daemon's local storage.
func (p *Provider) DeleteModel(ctx context.Context, name string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": name}).
		Delete("/api/delete")
	if err != nil {
		return provider.MapDispatchError(providerName, err)
	}
	if resp.IsError() {
		return provider.NewError(providerName, provider.ClassifyHTTPStatus(resp.StatusCode()), fmt.Sprintf("delete %s failed", name), nil)
	}
	log := logger.GetLogger()
	log.Info().Str("model", name).Msg("deleted local model")
	return nil
}
