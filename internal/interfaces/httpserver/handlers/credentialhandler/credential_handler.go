package credentialhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"model-manager/internal/domain/credential"
	"model-manager/internal/domain/provider"
	"model-manager/internal/interfaces/httpserver/requests"
	"model-manager/internal/interfaces/httpserver/responses"
)

// CredentialHandler manages stored provider API keys. Keys are write-only
// over HTTP: responses never echo them back.
type CredentialHandler struct {
	store *credential.Store
}

func NewCredentialHandler(store *credential.Store) *CredentialHandler {
	return &CredentialHandler{store: store}
}

// List handles GET /v1/credentials, returning provider names only.
func (h *CredentialHandler) List(c *gin.Context) {
	providers, err := h.store.Providers(c.Request.Context())
	if err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// Put handles PUT /v1/credentials/:provider.
func (h *CredentialHandler) Put(c *gin.Context) {
	var body requests.PutCredentialRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		responses.Error(c, provider.NewValidationError("invalid request body: %v", err))
		return
	}
	if err := h.store.Put(c.Request.Context(), c.Param("provider"), body.APIKey); err != nil {
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": c.Param("provider"), "stored": true})
}

// Delete handles DELETE /v1/credentials/:provider.
func (h *CredentialHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("provider")); err != nil {
		responses.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
