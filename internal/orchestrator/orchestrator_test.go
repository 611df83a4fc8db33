package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/preference"
	"model-manager/internal/domain/provider"
	"model-manager/internal/domain/usage"
	"model-manager/internal/orchestrator"
	"model-manager/internal/utils/retry"
)

// fakeProvider is a configurable Provider for orchestrator tests. Only the
// Func fields a test needs are set.
type fakeProvider struct {
	name             string
	generateFunc     func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error)
	listModelsFunc   func(ctx context.Context) ([]model.ModelInfo, error)
	getModelInfoFunc func(ctx context.Context, name string) (model.ModelInfo, error)
	streamFunc       func(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if f.listModelsFunc != nil {
		return f.listModelsFunc(ctx)
	}
	return nil, nil
}

func (f *fakeProvider) GetModelInfo(ctx context.Context, name string) (model.ModelInfo, error) {
	if f.getModelInfoFunc != nil {
		return f.getModelInfoFunc(ctx, name)
	}
	return model.ModelInfo{}, provider.NewModelNotFoundError(f.name, name)
}

func (f *fakeProvider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	if f.generateFunc != nil {
		return f.generateFunc(ctx, req)
	}
	return &model.GenerationResponse{
		Model:        req.Model,
		Provider:     f.name,
		Content:      "ok",
		InputTokens:  10,
		OutputTokens: 20,
		TotalTokens:  30,
	}, nil
}

func (f *fakeProvider) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	if f.streamFunc != nil {
		return f.streamFunc(ctx, req)
	}
	ch := make(chan provider.StreamChunk)
	close(ch)
	return ch, nil
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) HealthCheck(ctx context.Context) provider.HealthStatus {
	return provider.HealthStatus{Available: true}
}

// memoryLedger is an in-memory usage.Repository.
type memoryLedger struct {
	mu        sync.Mutex
	records   []usage.Record
	appendErr error
}

func (m *memoryLedger) Append(ctx context.Context, record *usage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryLedger) Aggregate(ctx context.Context, filter usage.Filter, groupBy usage.GroupBy) ([]model.UsageStats, error) {
	return nil, nil
}

func (m *memoryLedger) List(ctx context.Context, filter usage.Filter, limit int) ([]usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]usage.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryLedger) recorded() []usage.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]usage.Record, len(m.records))
	copy(out, m.records)
	return out
}

func mustRegistry(t *testing.T, providers ...provider.Provider) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func fastRetry(attempts int) orchestrator.Options {
	return orchestrator.Options{
		RetryPolicy: retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		TrackCost:   true,
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     model.GenerationRequest
		wantErr bool
	}{
		{
			name: "valid prompt request",
			req:  model.GenerationRequest{Provider: "openai", Model: "gpt-4o", Prompt: "hi", Temperature: 0.7},
		},
		{
			name: "valid messages request",
			req: model.GenerationRequest{
				Provider: "openai", Model: "gpt-4o", Temperature: 2,
				Messages: []model.Message{{Role: "user", Content: "hi"}},
			},
		},
		{
			name:    "missing provider",
			req:     model.GenerationRequest{Model: "gpt-4o", Prompt: "hi"},
			wantErr: true,
		},
		{
			name:    "missing model",
			req:     model.GenerationRequest{Provider: "openai", Prompt: "hi"},
			wantErr: true,
		},
		{
			name:    "no prompt or messages",
			req:     model.GenerationRequest{Provider: "openai", Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name: "prompt and messages together",
			req: model.GenerationRequest{
				Provider: "openai", Model: "gpt-4o", Prompt: "hi",
				Messages: []model.Message{{Role: "user", Content: "hi"}},
			},
			wantErr: true,
		},
		{
			name:    "temperature below range",
			req:     model.GenerationRequest{Provider: "openai", Model: "gpt-4o", Prompt: "hi", Temperature: -0.1},
			wantErr: true,
		},
		{
			name:    "temperature above range",
			req:     model.GenerationRequest{Provider: "openai", Model: "gpt-4o", Prompt: "hi", Temperature: 2.1},
			wantErr: true,
		},
		{
			name:    "negative max tokens",
			req:     model.GenerationRequest{Provider: "openai", Model: "gpt-4o", Prompt: "hi", MaxTokens: -1},
			wantErr: true,
		},
		{
			name: "message missing content",
			req: model.GenerationRequest{
				Provider: "openai", Model: "gpt-4o",
				Messages: []model.Message{{Role: "user"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := orchestrator.ValidateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !provider.IsKind(err, provider.KindValidation) {
				t.Errorf("error kind = %v, want validation", err)
			}
		})
	}
}

func TestGenerate_Success(t *testing.T) {
	ledger := &memoryLedger{}
	cost := decimal.RequireFromString("0.04")
	backend := &fakeProvider{
		name: "openai",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			return &model.GenerationResponse{
				Model: req.Model, Provider: "openai", Content: "hello",
				InputTokens: 1000, OutputTokens: 1000, TotalTokens: 2000,
				Cost: cost, LatencyMS: 12,
			}, nil
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), usage.NewService(ledger, nil), nil, fastRetry(3))

	resp, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "openai", Model: "gpt-4o", Prompt: "hi", Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TotalTokens != resp.InputTokens+resp.OutputTokens {
		t.Errorf("TotalTokens = %d, want %d", resp.TotalTokens, resp.InputTokens+resp.OutputTokens)
	}

	records := ledger.recorded()
	if len(records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(records))
	}
	if records[0].Error {
		t.Error("success record flagged as error")
	}
	if !records[0].Cost.Equal(cost) {
		t.Errorf("ledger cost = %s, want %s", records[0].Cost, cost)
	}
}

func TestGenerate_UnknownProvider(t *testing.T) {
	o := orchestrator.New(mustRegistry(t, &fakeProvider{name: "openai"}), nil, nil, fastRetry(3))
	_, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "anthropic", Model: "claude-3-haiku-20240307", Prompt: "hi",
	})
	if !provider.IsKind(err, provider.KindNotConfigured) {
		t.Errorf("error = %v, want provider_not_configured", err)
	}
}

func TestGenerate_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	backend := &fakeProvider{
		name: "ollama",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			calls++
			if calls < 3 {
				return nil, provider.NewError("ollama", provider.KindUnavailable, "connection refused", nil)
			}
			return &model.GenerationResponse{Model: req.Model, Provider: "ollama", Content: "ok"}, nil
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), nil, nil, fastRetry(3))

	resp, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "ollama", Model: "llama3.2", Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("backend calls = %d, want 3", calls)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestGenerate_RetryBudgetExhausted(t *testing.T) {
	calls := 0
	ledger := &memoryLedger{}
	backend := &fakeProvider{
		name: "ollama",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			calls++
			return nil, provider.NewError("ollama", provider.KindTimeout, "backend call timed out", nil)
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), usage.NewService(ledger, nil), nil, fastRetry(3))

	_, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "ollama", Model: "llama3.2", Prompt: "hi",
	})
	if !provider.IsKind(err, provider.KindTimeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if calls != 3 {
		t.Errorf("backend calls = %d, want 3", calls)
	}

	records := ledger.recorded()
	if len(records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(records))
	}
	if !records[0].Error || records[0].ErrorKind != string(provider.KindTimeout) {
		t.Errorf("failure record = %+v", records[0])
	}
	if !records[0].Cost.IsZero() {
		t.Errorf("failure record cost = %s, want 0", records[0].Cost)
	}
}

func TestGenerate_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	backend := &fakeProvider{
		name: "openai",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			calls++
			return nil, provider.NewError("openai", provider.KindAuth, "invalid api key", nil)
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), nil, nil, fastRetry(5))

	_, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "openai", Model: "gpt-4o", Prompt: "hi",
	})
	if !provider.IsKind(err, provider.KindAuth) {
		t.Fatalf("error = %v, want auth", err)
	}
	if calls != 1 {
		t.Errorf("backend calls = %d, want 1", calls)
	}
}

func TestGenerate_LedgerFailureDoesNotFailCall(t *testing.T) {
	failures := 0
	ledger := &memoryLedger{appendErr: errors.New("disk full")}
	svc := usage.NewService(ledger, func() { failures++ })
	o := orchestrator.New(mustRegistry(t, &fakeProvider{name: "openai"}), svc, nil, fastRetry(1))

	resp, err := o.Generate(context.Background(), &model.GenerationRequest{
		Provider: "openai", Model: "gpt-4o", Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp == nil || resp.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if failures != 1 {
		t.Errorf("onWriteError calls = %d, want 1", failures)
	}
}

func TestCompare_PreservesInputOrderAndIsolatesFailures(t *testing.T) {
	slow := &fakeProvider{
		name: "openai",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			time.Sleep(20 * time.Millisecond)
			return &model.GenerationResponse{Model: req.Model, Provider: "openai", Content: "slow"}, nil
		},
	}
	fast := &fakeProvider{
		name: "ollama",
		generateFunc: func(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
			return &model.GenerationResponse{Model: req.Model, Provider: "ollama", Content: "fast"}, nil
		},
	}
	ledger := &memoryLedger{}
	o := orchestrator.New(mustRegistry(t, slow, fast), usage.NewService(ledger, nil), nil, fastRetry(1))

	pairs := []orchestrator.ComparePair{
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "anthropic", Model: "claude-3-haiku-20240307"},
		{Provider: "ollama", Model: "llama3.2"},
	}
	results, err := o.Compare(context.Background(), &model.GenerationRequest{Prompt: "hi", Temperature: 0.7}, pairs)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(results) != len(pairs) {
		t.Fatalf("results = %d, want %d", len(results), len(pairs))
	}

	for i, pair := range pairs {
		if results[i].Provider != pair.Provider || results[i].Model != pair.Model {
			t.Errorf("results[%d] = %s/%s, want %s/%s", i, results[i].Provider, results[i].Model, pair.Provider, pair.Model)
		}
	}

	if results[0].Err != nil || results[0].Response.Content != "slow" {
		t.Errorf("results[0] = %+v, err %v", results[0].Response, results[0].Err)
	}
	if !provider.IsKind(results[1].Err, provider.KindNotConfigured) {
		t.Errorf("results[1].Err = %v, want provider_not_configured", results[1].Err)
	}
	if results[1].Response != nil {
		t.Error("failed pair must not carry a response")
	}
	if results[2].Err != nil || results[2].Response.Content != "fast" {
		t.Errorf("results[2] = %+v, err %v", results[2].Response, results[2].Err)
	}

	// The unconfigured pair never reaches a backend, so only the two
	// dispatched pairs land in the ledger.
	if records := ledger.recorded(); len(records) != 2 {
		t.Errorf("ledger records = %d, want 2", len(records))
	}
}

func TestCompare_AllSucceedOneLedgerRowPerPair(t *testing.T) {
	ledger := &memoryLedger{}
	o := orchestrator.New(
		mustRegistry(t, &fakeProvider{name: "openai"}, &fakeProvider{name: "ollama"}),
		usage.NewService(ledger, nil), nil, fastRetry(1),
	)

	pairs := []orchestrator.ComparePair{
		{Provider: "openai", Model: "gpt-4o"},
		{Provider: "openai", Model: "gpt-4o-mini"},
		{Provider: "ollama", Model: "llama3.2"},
		{Provider: "ollama", Model: "codellama:7b"},
		{Provider: "openai", Model: "gpt-3.5-turbo"},
	}
	results, err := o.Compare(context.Background(), &model.GenerationRequest{Prompt: "hi", Temperature: 0.7}, pairs)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	for i, result := range results {
		if result.Err != nil {
			t.Errorf("results[%d].Err = %v", i, result.Err)
		}
	}

	records := ledger.recorded()
	if len(records) != len(pairs) {
		t.Fatalf("ledger records = %d, want %d", len(records), len(pairs))
	}
	seen := make(map[string]int, len(records))
	for _, record := range records {
		seen[record.Provider+"/"+record.Model]++
	}
	for _, pair := range pairs {
		if seen[pair.Provider+"/"+pair.Model] != 1 {
			t.Errorf("pair %s/%s recorded %d times, want 1", pair.Provider, pair.Model, seen[pair.Provider+"/"+pair.Model])
		}
	}
}

func TestCompare_RejectsEmptyInput(t *testing.T) {
	o := orchestrator.New(mustRegistry(t, &fakeProvider{name: "openai"}), nil, nil, fastRetry(1))

	_, err := o.Compare(context.Background(), &model.GenerationRequest{Prompt: "hi"}, nil)
	if !provider.IsKind(err, provider.KindValidation) {
		t.Errorf("empty pairs error = %v, want validation", err)
	}

	_, err = o.Compare(context.Background(), &model.GenerationRequest{}, []orchestrator.ComparePair{{Provider: "openai", Model: "gpt-4o"}})
	if !provider.IsKind(err, provider.KindValidation) {
		t.Errorf("empty prompt error = %v, want validation", err)
	}
}

func TestListModels(t *testing.T) {
	chatModel := model.ModelInfo{Name: "gpt-4o", Provider: "openai", Capabilities: []model.Capability{model.CapabilityChat}}
	visionModel := model.ModelInfo{Name: "llava", Provider: "ollama", Capabilities: []model.Capability{model.CapabilityChat, model.CapabilityVision}}

	openai := &fakeProvider{
		name: "openai",
		listModelsFunc: func(ctx context.Context) ([]model.ModelInfo, error) {
			return []model.ModelInfo{chatModel}, nil
		},
	}
	ollama := &fakeProvider{
		name: "ollama",
		listModelsFunc: func(ctx context.Context) ([]model.ModelInfo, error) {
			return []model.ModelInfo{visionModel}, nil
		},
	}
	broken := &fakeProvider{
		name: "anthropic",
		listModelsFunc: func(ctx context.Context) ([]model.ModelInfo, error) {
			return nil, provider.NewError("anthropic", provider.KindUnavailable, "down", nil)
		},
	}
	o := orchestrator.New(mustRegistry(t, openai, broken, ollama), nil, nil, fastRetry(1))

	models, err := o.ListModels(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models = %d, want 2 (broken provider skipped)", len(models))
	}
	if models[0].Name != "gpt-4o" || models[1].Name != "llava" {
		t.Errorf("unexpected model order: %s, %s", models[0].Name, models[1].Name)
	}

	visionOnly, err := o.ListModels(context.Background(), "", model.CapabilityVision)
	if err != nil {
		t.Fatalf("ListModels(vision) error = %v", err)
	}
	if len(visionOnly) != 1 || visionOnly[0].Name != "llava" {
		t.Errorf("vision filter = %+v", visionOnly)
	}

	if _, err := o.ListModels(context.Background(), "", model.Capability("bogus")); !provider.IsKind(err, provider.KindValidation) {
		t.Errorf("bogus capability error = %v, want validation", err)
	}

	if _, err := o.ListModels(context.Background(), "mistral", ""); !provider.IsKind(err, provider.KindNotConfigured) {
		t.Errorf("unknown provider filter error = %v, want provider_not_configured", err)
	}
}

func TestGetModelInfo(t *testing.T) {
	backend := &fakeProvider{
		name: "openai",
		getModelInfoFunc: func(ctx context.Context, name string) (model.ModelInfo, error) {
			if name == "gpt-4o" {
				return model.ModelInfo{Name: "gpt-4o", Provider: "openai"}, nil
			}
			return model.ModelInfo{}, provider.NewModelNotFoundError("openai", name)
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), nil, nil, fastRetry(1))

	info, err := o.GetModelInfo(context.Background(), "openai", "gpt-4o")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if info.Name != "gpt-4o" {
		t.Errorf("Name = %s", info.Name)
	}

	if _, err := o.GetModelInfo(context.Background(), "openai", "gpt-9"); !provider.IsKind(err, provider.KindModelNotFound) {
		t.Errorf("error = %v, want model_not_found", err)
	}
	if _, err := o.GetModelInfo(context.Background(), "openai", ""); !provider.IsKind(err, provider.KindValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

// fakePrefRepo backs preference resolution tests.
type fakePrefRepo struct {
	prefs map[string]*preference.Preference
}

func (f *fakePrefRepo) Upsert(ctx context.Context, pref *preference.Preference) error {
	f.prefs[pref.TaskType] = pref
	return nil
}

func (f *fakePrefRepo) Find(ctx context.Context, taskType string) (*preference.Preference, error) {
	return f.prefs[taskType], nil
}

func (f *fakePrefRepo) List(ctx context.Context) ([]preference.Preference, error) { return nil, nil }
func (f *fakePrefRepo) Delete(ctx context.Context, taskType string) error        { return nil }

func TestResolveTaskType(t *testing.T) {
	prefs := preference.NewService(&fakePrefRepo{prefs: map[string]*preference.Preference{
		"code": {TaskType: "code", Provider: "ollama", Model: "codellama"},
	}})
	o := orchestrator.New(mustRegistry(t, &fakeProvider{name: "ollama"}), nil, prefs, fastRetry(1))

	req := &model.GenerationRequest{Prompt: "write a loop"}
	if err := o.ResolveTaskType(context.Background(), req, "code"); err != nil {
		t.Fatalf("ResolveTaskType() error = %v", err)
	}
	if req.Provider != "ollama" || req.Model != "codellama" {
		t.Errorf("resolved = %s/%s", req.Provider, req.Model)
	}

	// Explicit provider/model win over the stored preference.
	explicit := &model.GenerationRequest{Provider: "openai", Model: "gpt-4o", Prompt: "hi"}
	if err := o.ResolveTaskType(context.Background(), explicit, "code"); err != nil {
		t.Fatalf("ResolveTaskType() error = %v", err)
	}
	if explicit.Provider != "openai" {
		t.Errorf("explicit provider overwritten: %s", explicit.Provider)
	}

	missing := &model.GenerationRequest{Prompt: "hi"}
	err := o.ResolveTaskType(context.Background(), missing, "translation")
	if !provider.IsKind(err, provider.KindValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestGenerateStream_ValidationAndDispatch(t *testing.T) {
	backend := &fakeProvider{
		name: "ollama",
		streamFunc: func(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
			ch := make(chan provider.StreamChunk, 2)
			ch <- provider.StreamChunk{Content: "hel"}
			ch <- provider.StreamChunk{Content: "lo"}
			close(ch)
			return ch, nil
		},
	}
	o := orchestrator.New(mustRegistry(t, backend), nil, nil, fastRetry(1))

	ch, err := o.GenerateStream(context.Background(), &model.GenerationRequest{
		Provider: "ollama", Model: "llama3.2", Prompt: "hi",
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
	if content != "hello" {
		t.Errorf("streamed content = %q", content)
	}

	if _, err := o.GenerateStream(context.Background(), &model.GenerationRequest{Provider: "ollama", Model: "llama3.2"}); err == nil {
		t.Error("expected validation error for empty prompt")
	}
}
