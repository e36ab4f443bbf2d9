package middleware

import (
	"github.com/gin-gonic/gin"
)

// SSEConfig narrows which origins may open an event stream.
type SSEConfig struct {
	AllowedOrigins []string
}

// SSEMiddleware sets the response headers required for a server-sent event
// stream before the handler starts writing frames.
func SSEMiddleware(cfg SSEConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		origin := c.GetHeader("Origin")
		if len(cfg.AllowedOrigins) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed || allowed == "*" {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Next()
	}
}
