package preferencehandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"model-manager/internal/domain/preference"
	"model-manager/internal/domain/provider"
	"model-manager/internal/interfaces/httpserver/requests"
	"model-manager/internal/interfaces/httpserver/responses"
)

type PreferenceHandler struct {
	preferences *preference.Service
}

func NewPreferenceHandler(svc *preference.Service) *PreferenceHandler {
	return &PreferenceHandler{preferences: svc}
}

// List handles GET /v1/preferences.
func (h *PreferenceHandler) List(c *gin.Context) {
	prefs, err := h.preferences.List(c.Request.Context())
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// Get handles GET /v1/preferences/:task_type.
func (h *PreferenceHandler) Get(c *gin.Context) {
	pref, err := h.preferences.Get(c.Request.Context(), c.Param("task_type"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	if pref == nil {
		responses.Error(c, provider.NewError("", provider.KindModelNotFound, "no preference for task type", nil))
		return
	}
	c.JSON(http.StatusOK, pref)
}

// Set handles PUT /v1/preferences/:task_type.
func (h *PreferenceHandler) Set(c *gin.Context) {
	var body requests.SetPreferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		responses.Error(c, provider.NewValidationError("invalid request body: %v", err))
		return
	}
	pref, err := h.preferences.Set(c.Request.Context(), c.Param("task_type"), body.Provider, body.Model)
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// Delete handles DELETE /v1/preferences/:task_type.
func (h *PreferenceHandler) Delete(c *gin.Context) {
	if err := h.preferences.Delete(c.Request.Context(), c.Param("task_type")); err != nil {
		responses.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
