package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "generations_total",
			Help:      "Total generation calls by outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "model_manager",
			Name:      "generation_duration_seconds",
			Help:      "Generation call latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	// Token counters
	TokensInputTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "tokens_input_total",
			Help:      "Total input tokens consumed",
		},
		[]string{"model", "provider"},
	)

	TokensOutputTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "tokens_output_total",
			Help:      "Total output tokens generated",
		},
		[]string{"model", "provider"},
	)

	// Provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"provider", "error_kind"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "retries_total",
			Help:      "Total retry attempts after transient failures",
		},
		[]string{"provider", "model"},
	)

	ComparisonsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "comparisons_total",
			Help:      "Total compare operations",
		},
	)

	LedgerWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "ledger_write_failures_total",
			Help:      "Total usage ledger appends that failed",
		},
	)

	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "model_manager",
			Name:      "conversations_created_total",
			Help:      "Total conversations saved",
		},
	)

	ProviderHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "model_manager",
			Name:      "provider_healthy",
			Help:      "1 when the provider's last health check passed",
		},
		[]string{"provider"},
	)
)

// RecordHTTPRequest increments the request counter for one served request.
func RecordHTTPRequest(method, endpoint string, status int) {
	RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// RecordGeneration tracks one finished generation call.
func RecordGeneration(providerName, modelName string, seconds float64, inputTokens, outputTokens int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	GenerationsTotal.WithLabelValues(providerName, modelName, outcome).Inc()
	GenerationDuration.WithLabelValues(providerName, modelName).Observe(seconds)
	if err == nil {
		TokensInputTotal.WithLabelValues(modelName, providerName).Add(float64(inputTokens))
		TokensOutputTotal.WithLabelValues(modelName, providerName).Add(float64(outputTokens))
	}
}

// SetProviderHealth records the latest health probe outcome.
func SetProviderHealth(providerName string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	ProviderHealth.WithLabelValues(providerName).Set(value)
}
