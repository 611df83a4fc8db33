package health_test

import (
	"context"
	"testing"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/health"
)

// probeProvider answers health checks with a fixed availability.
type probeProvider struct {
	name      string
	available bool
}

func (p *probeProvider) Name() string { return p.name }
func (p *probeProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return nil, nil
}
func (p *probeProvider) GetModelInfo(ctx context.Context, name string) (model.ModelInfo, error) {
	return model.ModelInfo{}, provider.NewModelNotFoundError(p.name, name)
}
func (p *probeProvider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	return nil, nil
}
func (p *probeProvider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	return nil, nil
}
func (p *probeProvider) IsAvailable(ctx context.Context) bool { return p.available }
func (p *probeProvider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthStatus{
		Available: p.available,
		Detail:    map[string]any{"probe": p.name},
	}
}

func makeAggregator(t *testing.T, providers ...provider.Provider) *health.Aggregator {
	t.Helper()
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return health.NewAggregator(reg, 0)
}

func TestCheck_AllHealthy(t *testing.T) {
	agg := makeAggregator(t,
		&probeProvider{name: "ollama", available: true},
		&probeProvider{name: "openai", available: true},
	)

	report := agg.Check(context.Background())
	if report.Status != health.StatusHealthy {
		t.Errorf("Status = %s, want healthy", report.Status)
	}
	if len(report.Providers) != 2 {
		t.Fatalf("providers = %d, want 2", len(report.Providers))
	}
	if !report.Providers["ollama"].Available || !report.Providers["openai"].Available {
		t.Errorf("unexpected provider reports: %+v", report.Providers)
	}
	if report.CheckedAt.IsZero() {
		t.Error("CheckedAt must be set")
	}
}

func TestCheck_OneDownIsDegraded(t *testing.T) {
	agg := makeAggregator(t,
		&probeProvider{name: "ollama", available: true},
		&probeProvider{name: "anthropic", available: false},
		&probeProvider{name: "google", available: true},
	)

	report := agg.Check(context.Background())
	if report.Status != health.StatusDegraded {
		t.Errorf("Status = %s, want degraded", report.Status)
	}
	if report.Providers["anthropic"].Available {
		t.Error("anthropic should be reported unavailable")
	}
}

func TestCheck_AllDownIsUnavailable(t *testing.T) {
	agg := makeAggregator(t,
		&probeProvider{name: "openai", available: false},
		&probeProvider{name: "mistral", available: false},
	)

	report := agg.Check(context.Background())
	if report.Status != health.StatusUnavailable {
		t.Errorf("Status = %s, want unavailable", report.Status)
	}
}

func TestCheck_NoProvidersIsUnavailable(t *testing.T) {
	agg := makeAggregator(t)

	report := agg.Check(context.Background())
	if report.Status != health.StatusUnavailable {
		t.Errorf("Status = %s, want unavailable", report.Status)
	}
	if len(report.Providers) != 0 {
		t.Errorf("providers = %d, want 0", len(report.Providers))
	}
}
