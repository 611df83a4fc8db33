package conversationhandler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"model-manager/internal/domain/conversation"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/metrics"
	"model-manager/internal/interfaces/httpserver/requests"
	"model-manager/internal/interfaces/httpserver/responses"
)

type ConversationHandler struct {
	conversations *conversation.Service
}

func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{conversations: svc}
}

// Save handles POST /v1/conversations.
func (h *ConversationHandler) Save(c *gin.Context) {
	var body requests.SaveConversationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		responses.Error(c, provider.NewValidationError("invalid request body: %v", err))
		return
	}

	conv, err := h.conversations.Save(c.Request.Context(), body.Title, body.Model, body.Provider, body.Messages)
	if err != nil {
		responses.Error(c, err)
		return
	}
	metrics.ConversationsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, conversationDTO(conv, true))
}

// Get handles GET /v1/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	publicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Error(c, provider.NewValidationError("invalid conversation id"))
		return
	}
	conv, err := h.conversations.Get(c.Request.Context(), publicID)
	if err != nil {
		responses.Error(c, err)
		return
	}
	if conv == nil {
		responses.Error(c, provider.NewError("", provider.KindModelNotFound, "conversation not found", nil))
		return
	}
	c.JSON(http.StatusOK, conversationDTO(conv, true))
}

// List handles GET /v1/conversations. Query params: limit, offset.
func (h *ConversationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	conversations, err := h.conversations.List(c.Request.Context(), limit, offset)
	if err != nil {
		responses.Error(c, err)
		return
	}
	total, err := h.conversations.Count(c.Request.Context())
	if err != nil {
		responses.Error(c, err)
		return
	}

	items := make([]gin.H, 0, len(conversations))
	for i := range conversations {
		items = append(items, conversationDTO(&conversations[i], false))
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": items,
		"total":         total,
	})
}

// Delete handles DELETE /v1/conversations/:id.
func (h *ConversationHandler) Delete(c *gin.Context) {
	publicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.Error(c, provider.NewValidationError("invalid conversation id"))
		return
	}
	if err := h.conversations.Delete(c.Request.Context(), publicID); err != nil {
		responses.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// conversationDTO shapes the wire form; list views omit the transcript.
func conversationDTO(conv *conversation.Conversation, withMessages bool) gin.H {
	dto := gin.H{
		"id":            conv.PublicID.String(),
		"title":         conv.Title,
		"model":         conv.Model,
		"provider":      conv.Provider,
		"message_count": len(conv.Messages),
		"created_at":    conv.CreatedAt,
		"updated_at":    conv.UpdatedAt,
	}
	if withMessages {
		dto["messages"] = conv.Messages
	}
	return dto
}
