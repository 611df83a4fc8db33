package google_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/providers/google"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing key query parameter")
		}

		var req struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction *struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be brief" {
			t.Errorf("systemInstruction = %+v", req.SystemInstruction)
		}
		if len(req.Contents) != 2 {
			t.Fatalf("contents = %d, want 2", len(req.Contents))
		}
		if req.Contents[1].Role != "model" {
			t.Errorf("assistant role on the wire = %q, want model", req.Contents[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"candidates": [
				{"content": {"role": "model", "parts": [{"text": "All good"}]}, "finishReason": "STOP"}
			],
			"usageMetadata": {"promptTokenCount": 2000, "candidatesTokenCount": 1000}
		}`)
	}))
	defer server.Close()

	p := google.NewWithBaseURL("test-key", server.URL)
	resp, err := p.Generate(context.Background(), &model.GenerationRequest{
		Model:        "gemini-1.5-flash",
		Provider:     "google",
		SystemPrompt: "be brief",
		Messages: []model.Message{
			{Role: "user", Content: "status?"},
			{Role: "assistant", Content: "checking"},
		},
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "All good" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.InputTokens != 2000 || resp.OutputTokens != 1000 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	// 2000 in at 0.000075/1k plus 1000 out at 0.0003/1k.
	if !resp.Cost.Equal(decimal.RequireFromString("0.00045")) {
		t.Errorf("Cost = %s, want 0.00045", resp.Cost)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %s", resp.FinishReason)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer server.Close()

	p := google.NewWithBaseURL("test-key", server.URL)
	_, err := p.Generate(context.Background(), &model.GenerationRequest{
		Model: "gemini-pro", Provider: "google", Prompt: "hi",
	})
	if !provider.IsKind(err, provider.KindServer) {
		t.Errorf("error = %v, want server", err)
	}
}

func TestGenerate_ParsesAPIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	p := google.NewWithBaseURL("bad-key", server.URL)
	_, err := p.Generate(context.Background(), &model.GenerationRequest{
		Model: "gemini-pro", Provider: "google", Prompt: "hi",
	})
	if !provider.IsKind(err, provider.KindAuth) {
		t.Fatalf("error = %v, want auth", err)
	}
}

func TestGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-pro:streamGenerateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Error("missing alt=sse query parameter")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"Hel\"}]}}]}\n\n")
		fmt.Fprint(w, "data: {\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"lo\"}]}}]}\n\n")
	}))
	defer server.Close()

	p := google.NewWithBaseURL("test-key", server.URL)
	ch, err := p.GenerateStream(context.Background(), &model.GenerationRequest{
		Model: "gemini-1.5-pro", Provider: "google", Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}

	var content string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("chunk error = %v", chunk.Err)
		}
		content += chunk.Content
	}
	if content != "Hello" {
		t.Errorf("streamed content = %q", content)
	}
}

func TestModelCatalog(t *testing.T) {
	p := google.New("test-key")
	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("models = %d, want 3", len(models))
	}

	pro, err := p.GetModelInfo(context.Background(), "gemini-1.5-pro")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if pro.ContextLength != 2000000 {
		t.Errorf("ContextLength = %d", pro.ContextLength)
	}

	if _, err := p.GetModelInfo(context.Background(), "gemini-9"); !provider.IsKind(err, provider.KindModelNotFound) {
		t.Errorf("error = %v, want model_not_found", err)
	}
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models": []}`)
	}))
	defer server.Close()

	p := google.NewWithBaseURL("test-key", server.URL)
	if !p.IsAvailable(context.Background()) {
		t.Error("expected available")
	}

	status := p.HealthCheck(context.Background())
	if !status.Available {
		t.Errorf("HealthCheck = %+v", status)
	}
}
