package modelhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"model-manager/internal/domain/model"
	"model-manager/internal/interfaces/httpserver/responses"
	"model-manager/internal/orchestrator"
)

type ModelHandler struct {
	orchestrator *orchestrator.Orchestrator
}

func NewModelHandler(orch *orchestrator.Orchestrator) *ModelHandler {
	return &ModelHandler{orchestrator: orch}
}

// List handles GET /v1/models. Optional query params: provider, capability.
func (h *ModelHandler) List(c *gin.Context) {
	models, err := h.orchestrator.ListModels(
		c.Request.Context(),
		c.Query("provider"),
		model.Capability(c.Query("capability")),
	)
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"models": models,
		"count":  len(models),
	})
}

// Get handles GET /v1/models/:provider/:model.
func (h *ModelHandler) Get(c *gin.Context) {
	info, err := h.orchestrator.GetModelInfo(c.Request.Context(), c.Param("provider"), c.Param("model"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
