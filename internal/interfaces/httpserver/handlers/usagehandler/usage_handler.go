package usagehandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"model-manager/internal/domain/provider"
	"model-manager/internal/domain/usage"
	"model-manager/internal/interfaces/httpserver/responses"
)

type UsageHandler struct {
	usage *usage.Service
}

func NewUsageHandler(svc *usage.Service) *UsageHandler {
	return &UsageHandler{usage: svc}
}

// Stats handles GET /v1/usage. Query params: model, provider, group_by.
func (h *UsageHandler) Stats(c *gin.Context) {
	groupBy := usage.GroupBy(c.Query("group_by"))
	switch groupBy {
	case usage.GroupByNone, usage.GroupByModel, usage.GroupByProvider:
	default:
		responses.Error(c, provider.NewValidationError("group_by must be empty, %q or %q", usage.GroupByModel, usage.GroupByProvider))
		return
	}

	filter := usage.Filter{
		Model:    c.Query("model"),
		Provider: c.Query("provider"),
	}
	stats, err := h.usage.Stats(c.Request.Context(), filter, groupBy)
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// Report handles GET /v1/status/usage, the read-only usage report. It
// carries the same per-model aggregates as GET /v1/usage, plus the newest
// ledger rows for context.
func (h *UsageHandler) Report(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := usage.Filter{
		Model:    c.Query("model"),
		Provider: c.Query("provider"),
	}

	stats, err := h.usage.Stats(c.Request.Context(), filter, usage.GroupByModel)
	if err != nil {
		responses.Error(c, err)
		return
	}
	records, err := h.usage.Recent(c.Request.Context(), filter, limit)
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"records": records,
		"count":   len(records),
	})
}
