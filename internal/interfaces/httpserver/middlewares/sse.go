package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareSSE sets the Server Sent Events response headers and hands back
// the flusher the generation stream writes through. ok is false when the
// underlying connection cannot flush incrementally.
func PrepareSSE(c *gin.Context) (flusher http.Flusher, ok bool) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	flusher, ok = c.Writer.(http.Flusher)
	return flusher, ok
}
