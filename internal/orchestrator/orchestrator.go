// Package orchestrator coordinates generation calls across registered
// providers: validation, retry on transient failures, fan-out comparison
// and best-effort usage accounting.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/preference"
	"model-manager/internal/domain/provider"
	"model-manager/internal/domain/usage"
	"model-manager/internal/infrastructure/logger"
	"model-manager/internal/infrastructure/metrics"
	"model-manager/internal/utils/retry"
)

const tracerName = "model-manager/orchestrator"

// Options tune the orchestrator's retry and timeout behavior.
type Options struct {
	RetryPolicy    retry.Policy
	RequestTimeout time.Duration
	TrackCost      bool
}

type Orchestrator struct {
	registry *provider.Registry
	ledger   *usage.Service
	prefs    *preference.Service
	opts     Options
}

// New wires the orchestrator. ledger and prefs may be nil, disabling
// accounting and task-type resolution respectively.
func New(registry *provider.Registry, ledger *usage.Service, prefs *preference.Service, opts Options) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		ledger:   ledger,
		prefs:    prefs,
		opts:     opts,
	}
}

// ValidateRequest rejects malformed requests before anything is dispatched.
func ValidateRequest(req *model.GenerationRequest) error {
	if req.Provider == "" {
		return provider.NewValidationError("provider is required")
	}
	if req.Model == "" {
		return provider.NewValidationError("model is required")
	}
	if req.Prompt == "" && len(req.Messages) == 0 {
		return provider.NewValidationError("either prompt or messages must be provided")
	}
	if req.Prompt != "" && len(req.Messages) > 0 {
		return provider.NewValidationError("prompt and messages are mutually exclusive")
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return provider.NewValidationError("temperature must be between 0 and 2, got %g", req.Temperature)
	}
	if req.MaxTokens < 0 {
		return provider.NewValidationError("max_tokens must not be negative")
	}
	for i, m := range req.Messages {
		if m.Role == "" || m.Content == "" {
			return provider.NewValidationError("message %d must have role and content", i)
		}
	}
	return nil
}

// ResolveTaskType fills provider and model from a stored task-type
// preference when the request names neither.
func (o *Orchestrator) ResolveTaskType(ctx context.Context, req *model.GenerationRequest, taskType string) error {
	if taskType == "" || req.Provider != "" || req.Model != "" || o.prefs == nil {
		return nil
	}
	pref, err := o.prefs.Get(ctx, taskType)
	if err != nil {
		return err
	}
	if pref == nil {
		return provider.NewValidationError("no preference stored for task type %q", taskType)
	}
	req.Provider = pref.Provider
	req.Model = pref.Model
	return nil
}

// Generate dispatches one request to its provider, retrying transient
// failures with exponential backoff. Every outcome is recorded in the
// usage ledger; ledger failures never surface to the caller.
func (o *Orchestrator) Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	backend, err := o.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "orchestrator.Generate")
	span.SetAttributes(
		attribute.String("gen.provider", req.Provider),
		attribute.String("gen.model", req.Model),
	)
	defer span.End()

	var resp *model.GenerationResponse
	attempt := 0
	start := time.Now()
	err = retry.Do(ctx, o.opts.RetryPolicy, provider.IsRetryable, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.RetriesTotal.WithLabelValues(req.Provider, req.Model).Inc()
			log := logger.GetLogger()
			log.Warn().
				Str("provider", req.Provider).
				Str("model", req.Model).
				Int("attempt", attempt).
				Msg("retrying generation after transient failure")
		}

		callCtx := ctx
		if o.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.opts.RequestTimeout)
			defer cancel()
		}
		var callErr error
		resp, callErr = backend.Generate(callCtx, req)
		return callErr
	})
	elapsed := time.Since(start)

	metrics.RecordGeneration(req.Provider, req.Model, elapsed.Seconds(), tokensOf(resp), outputTokensOf(resp), err)
	if err != nil {
		err = provider.MapDispatchError(req.Provider, err)
		metrics.ProviderErrorsTotal.WithLabelValues(req.Provider, string(kindOf(err))).Inc()
		span.RecordError(err)
		o.recordFailure(ctx, req, err, elapsed)
		return nil, err
	}
	o.recordSuccess(ctx, resp)
	return resp, nil
}

// GenerateStream opens a streaming generation. Streamed calls are not
// retried and, lacking final token counts, are not ledgered.
func (o *Orchestrator) GenerateStream(ctx context.Context, req *model.GenerationRequest) (<-chan provider.StreamChunk, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	backend, err := o.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	ch, err := backend.GenerateStream(ctx, req)
	if err != nil {
		err = provider.MapDispatchError(req.Provider, err)
		metrics.ProviderErrorsTotal.WithLabelValues(req.Provider, string(kindOf(err))).Inc()
		return nil, err
	}
	return ch, nil
}

// ComparePair names one provider/model target of a comparison.
type ComparePair struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// CompareResult is the outcome for one pair. Exactly one of Response and
// Err is set.
type CompareResult struct {
	Provider string                    `json:"provider"`
	Model    string                    `json:"model"`
	Response *model.GenerationResponse `json:"response,omitempty"`
	Err      error                     `json:"-"`
}

// Compare runs the same prompt against every pair concurrently. Results
// come back in input order and one pair's failure never disturbs the
// others.
func (o *Orchestrator) Compare(ctx context.Context, base *model.GenerationRequest, pairs []ComparePair) ([]CompareResult, error) {
	if len(pairs) == 0 {
		return nil, provider.NewValidationError("at least one provider/model pair is required")
	}
	if base.Prompt == "" && len(base.Messages) == 0 {
		return nil, provider.NewValidationError("either prompt or messages must be provided")
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "orchestrator.Compare")
	span.SetAttributes(attribute.Int("compare.pairs", len(pairs)))
	defer span.End()
	metrics.ComparisonsTotal.Inc()

	results := make([]CompareResult, len(pairs))
	var group errgroup.Group
	for i, pair := range pairs {
		i, pair := i, pair
		group.Go(func() error {
			req := *base
			req.Provider = pair.Provider
			req.Model = pair.Model
			resp, err := o.Generate(ctx, &req)
			results[i] = CompareResult{
				Provider: pair.Provider,
				Model:    pair.Model,
				Response: resp,
				Err:      err,
			}
			return nil
		})
	}
	// Goroutines only report into their own slot, so Wait cannot fail.
	_ = group.Wait()
	return results, nil
}

// ListModels returns models across providers in registration order. A
// provider that cannot enumerate is skipped, not fatal.
func (o *Orchestrator) ListModels(ctx context.Context, providerFilter string, capability model.Capability) ([]model.ModelInfo, error) {
	if capability != "" && !capability.Valid() {
		return nil, provider.NewValidationError("unknown capability %q", capability)
	}

	backends := o.registry.List()
	if providerFilter != "" {
		backend, err := o.registry.Get(providerFilter)
		if err != nil {
			return nil, err
		}
		backends = []provider.Provider{backend}
	}

	var models []model.ModelInfo
	for _, backend := range backends {
		list, err := backend.ListModels(ctx)
		if err != nil {
			log := logger.GetLogger()
			log.Warn().Err(err).Str("provider", backend.Name()).Msg("skipping provider during model listing")
			continue
		}
		for _, info := range list {
			if capability != "" && !info.HasCapability(capability) {
				continue
			}
			models = append(models, info)
		}
	}
	return models, nil
}

// GetModelInfo resolves one model on one provider.
func (o *Orchestrator) GetModelInfo(ctx context.Context, providerName, modelName string) (model.ModelInfo, error) {
	if modelName == "" {
		return model.ModelInfo{}, provider.NewValidationError("model is required")
	}
	backend, err := o.registry.Get(providerName)
	if err != nil {
		return model.ModelInfo{}, err
	}
	return backend.GetModelInfo(ctx, modelName)
}

func (o *Orchestrator) recordSuccess(ctx context.Context, resp *model.GenerationResponse) {
	if o.ledger == nil || !o.opts.TrackCost {
		return
	}
	o.ledger.RecordSuccess(context.WithoutCancel(ctx), resp)
}

func (o *Orchestrator) recordFailure(ctx context.Context, req *model.GenerationRequest, err error, elapsed time.Duration) {
	if o.ledger == nil || !o.opts.TrackCost {
		return
	}
	o.ledger.RecordFailure(context.WithoutCancel(ctx), req.Provider, req.Model, string(kindOf(err)), elapsed.Milliseconds())
}

func kindOf(err error) provider.ErrorKind {
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return provider.KindUnavailable
}

func tokensOf(resp *model.GenerationResponse) int {
	if resp == nil {
		return 0
	}
	return resp.InputTokens
}

func outputTokensOf(resp *model.GenerationResponse) int {
	if resp == nil {
		return 0
	}
	return resp.OutputTokens
}
