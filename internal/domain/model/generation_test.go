package model_test

import (
	"testing"

	"model-manager/internal/domain/model"
)

func TestCapability_Valid(t *testing.T) {
	for _, c := range model.Capabilities {
		if !c.Valid() {
			t.Errorf("capability %s should be valid", c)
		}
	}
	if model.Capability("telepathy").Valid() {
		t.Error("unknown capability should be invalid")
	}
}

func TestModelInfo_HasCapability(t *testing.T) {
	info := model.ModelInfo{
		Capabilities: []model.Capability{model.CapabilityChat, model.CapabilityVision},
	}
	if !info.HasCapability(model.CapabilityVision) {
		t.Error("expected vision capability")
	}
	if info.HasCapability(model.CapabilityCode) {
		t.Error("unexpected code capability")
	}
}

func TestGenerationRequest_ChatMessages(t *testing.T) {
	tests := []struct {
		name string
		req  model.GenerationRequest
		want []model.Message
	}{
		{
			name: "prompt only",
			req:  model.GenerationRequest{Prompt: "hello"},
			want: []model.Message{{Role: "user", Content: "hello"}},
		},
		{
			name: "prompt with system",
			req:  model.GenerationRequest{Prompt: "hello", SystemPrompt: "be brief"},
			want: []model.Message{
				{Role: "system", Content: "be brief"},
				{Role: "user", Content: "hello"},
			},
		},
		{
			name: "messages take precedence over prompt",
			req: model.GenerationRequest{
				Prompt: "ignored",
				Messages: []model.Message{
					{Role: "user", Content: "first"},
					{Role: "assistant", Content: "second"},
				},
			},
			want: []model.Message{
				{Role: "user", Content: "first"},
				{Role: "assistant", Content: "second"},
			},
		},
		{
			name: "empty request",
			req:  model.GenerationRequest{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.ChatMessages()
			if len(got) != len(tt.want) {
				t.Fatalf("ChatMessages() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ChatMessages()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
