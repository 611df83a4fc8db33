package generationhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"model-manager/internal/domain/model"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/observability"
	"model-manager/internal/interfaces/httpserver/middlewares"
	"model-manager/internal/interfaces/httpserver/requests"
	"model-manager/internal/interfaces/httpserver/responses"
	"model-manager/internal/orchestrator"
)

type GenerationHandler struct {
	orchestrator *orchestrator.Orchestrator
}

func NewGenerationHandler(orch *orchestrator.Orchestrator) *GenerationHandler {
	return &GenerationHandler{orchestrator: orch}
}

// Generate handles POST /v1/generate. With "stream": true the response
// is sent as Server Sent Events, otherwise as one JSON document.
func (h *GenerationHandler) Generate(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "GenerationHandler.Generate")
	defer span.End()

	var body requests.GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		err = provider.NewValidationError("invalid request body: %v", err)
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}

	req := body.ToDomain()
	if err := h.orchestrator.ResolveTaskType(ctx, req, body.TaskType); err != nil {
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}

	observability.AddSpanAttributes(ctx,
		attribute.String("generation.provider", req.Provider),
		attribute.String("generation.model", req.Model),
		attribute.Bool("generation.stream", req.Stream),
	)
	if traceID := observability.TraceID(ctx); traceID != "" {
		c.Header("X-Trace-Id", traceID)
	}

	if req.Stream {
		h.stream(ctx, c, req)
		return
	}

	resp, err := h.orchestrator.Generate(ctx, req)
	if err != nil {
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type streamEvent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

func (h *GenerationHandler) stream(ctx context.Context, c *gin.Context, req *model.GenerationRequest) {
	ch, err := h.orchestrator.GenerateStream(ctx, req)
	if err != nil {
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		responses.Error(c, provider.NewError(req.Provider, provider.KindServer, "streaming unsupported by connection", nil))
		return
	}

	write := func(event streamEvent) {
		payload, _ := json.Marshal(event)
		c.Writer.WriteString("data: ")
		c.Writer.Write(payload)
		c.Writer.WriteString("\n\n")
		flusher.Flush()
	}

	for chunk := range ch {
		if chunk.Err != nil {
			write(streamEvent{Error: chunk.Err.Error()})
			return
		}
		write(streamEvent{Content: chunk.Content})
	}
	write(streamEvent{Done: true})
}

// Compare handles POST /v1/compare: the same prompt fanned out across
// several provider/model pairs.
func (h *GenerationHandler) Compare(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "GenerationHandler.Compare")
	defer span.End()

	var body requests.CompareRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		err = provider.NewValidationError("invalid request body: %v", err)
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}
	observability.AddSpanAttributes(ctx, attribute.Int("compare.pair_count", len(body.Pairs)))

	results, err := h.orchestrator.Compare(ctx, body.ToDomain(), body.Pairs)
	if err != nil {
		observability.RecordError(ctx, err)
		responses.Error(c, err)
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, result := range results {
		entry := gin.H{
			"provider": result.Provider,
			"model":    result.Model,
		}
		if result.Err != nil {
			entry["error"] = responses.ErrorBodyOf(result.Err)
		} else {
			entry["response"] = result.Response
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
