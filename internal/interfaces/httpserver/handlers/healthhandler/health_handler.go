package healthhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"model-manager/internal/health"
)

type HealthHandler struct {
	aggregator *health.Aggregator
}

func NewHealthHandler(aggregator *health.Aggregator) *HealthHandler {
	return &HealthHandler{aggregator: aggregator}
}

// Check handles GET /healthz. The HTTP status follows the rollup so load
// balancers can act on it directly.
func (h *HealthHandler) Check(c *gin.Context) {
	report := h.aggregator.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnavailable {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Providers handles GET /v1/status/providers, the per-provider detail feed.
func (h *HealthHandler) Providers(c *gin.Context) {
	report := h.aggregator.Check(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":     report.Status,
		"providers":  report.Providers,
		"checked_at": report.CheckedAt,
	})
}
