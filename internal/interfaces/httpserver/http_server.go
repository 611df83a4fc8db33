// Package httpserver exposes the orchestration layer over HTTP.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"model-manager/internal/config"
	"model-manager/internal/interfaces/httpserver/handlers/conversationhandler"
	"model-manager/internal/interfaces/httpserver/handlers/credentialhandler"
	"model-manager/internal/interfaces/httpserver/handlers/generationhandler"
	"model-manager/internal/interfaces/httpserver/handlers/healthhandler"
	"model-manager/internal/interfaces/httpserver/handlers/modelhandler"
	"model-manager/internal/interfaces/httpserver/handlers/preferencehandler"
	"model-manager/internal/interfaces/httpserver/handlers/usagehandler"
	"model-manager/internal/interfaces/httpserver/middlewares"
)

// Handlers gathers everything the route table binds.
type Handlers struct {
	Models        *modelhandler.ModelHandler
	Generation    *generationhandler.GenerationHandler
	Usage         *usagehandler.UsageHandler
	Conversations *conversationhandler.ConversationHandler
	Preferences   *preferencehandler.PreferenceHandler
	Credentials   *credentialhandler.CredentialHandler
	Health        *healthhandler.HealthHandler
}

type HTTPServer struct {
	engine *gin.Engine
	config *config.Config
	server *http.Server
}

func NewHTTPServer(cfg *config.Config, logger zerolog.Logger, handlers Handlers) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.TracingMiddleware(cfg.ServiceName))
	engine.Use(middlewares.LoggingMiddleware(logger))
	engine.Use(middlewares.MetricsMiddleware())
	engine.Use(middlewares.CORSMiddleware())

	engine.GET("/healthz", handlers.Health.Check)
	engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := engine.Group("/v1")
	{
		v1.GET("/models", handlers.Models.List)
		v1.GET("/models/:provider/:model", handlers.Models.Get)

		v1.POST("/generate", handlers.Generation.Generate)
		v1.POST("/compare", handlers.Generation.Compare)

		v1.GET("/usage", handlers.Usage.Stats)
		v1.GET("/status/usage", handlers.Usage.Report)
		v1.GET("/status/providers", handlers.Health.Providers)

		v1.POST("/conversations", handlers.Conversations.Save)
		v1.GET("/conversations", handlers.Conversations.List)
		v1.GET("/conversations/:id", handlers.Conversations.Get)
		v1.DELETE("/conversations/:id", handlers.Conversations.Delete)

		v1.GET("/preferences", handlers.Preferences.List)
		v1.GET("/preferences/:task_type", handlers.Preferences.Get)
		v1.PUT("/preferences/:task_type", handlers.Preferences.Set)
		v1.DELETE("/preferences/:task_type", handlers.Preferences.Delete)

		v1.GET("/credentials", handlers.Credentials.List)
		v1.PUT("/credentials/:provider", handlers.Credentials.Put)
		v1.DELETE("/credentials/:provider", handlers.Credentials.Delete)
	}

	return &HTTPServer{engine: engine, config: cfg}
}

// Engine exposes the router for httptest-driven tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Run() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
