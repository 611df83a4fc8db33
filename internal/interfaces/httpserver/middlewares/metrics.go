package middlewares

import (
	"github.com/gin-gonic/gin"

	"model-manager/internal/infrastructure/metrics"
)

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status())
	}
}
