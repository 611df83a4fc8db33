// Package health probes every registered provider and rolls the results
// into one service-level status.
package health

import (
	"context"
	"sync"
	"time"

	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/metrics"
)

// Status is the service-level rollup.
type Status string

const (
	StatusHealthy     Status = "healthy"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// ProviderReport is one provider's probe outcome.
type ProviderReport struct {
	Available bool           `json:"available"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Report aggregates all provider probes.
type Report struct {
	Status    Status                    `json:"status"`
	Providers map[string]ProviderReport `json:"providers"`
	CheckedAt time.Time                 `json:"checked_at"`
}

type Aggregator struct {
	registry *provider.Registry
	timeout  time.Duration
}

func NewAggregator(registry *provider.Registry, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{registry: registry, timeout: timeout}
}

// Check probes every provider concurrently. A probe failure marks that
// provider unavailable; it never fails the aggregate call.
func (a *Aggregator) Check(ctx context.Context) Report {
	backends := a.registry.List()
	reports := make(map[string]ProviderReport, len(backends))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, backend := range backends {
		backend := backend
		wg.Add(1)
		go func() {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			status := backend.HealthCheck(probeCtx)
			metrics.SetProviderHealth(backend.Name(), status.Available)

			mu.Lock()
			reports[backend.Name()] = ProviderReport{
				Available: status.Available,
				Detail:    status.Detail,
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return Report{
		Status:    rollup(reports),
		Providers: reports,
		CheckedAt: time.Now().UTC(),
	}
}

func rollup(reports map[string]ProviderReport) Status {
	if len(reports) == 0 {
		return StatusUnavailable
	}
	available := 0
	for _, r := range reports {
		if r.Available {
			available++
		}
	}
	switch available {
	case len(reports):
		return StatusHealthy
	case 0:
		return StatusUnavailable
	default:
		return StatusDegraded
	}
}
