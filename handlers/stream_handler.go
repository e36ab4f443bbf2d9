package handlers

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/services"
)

// StreamHandler serves the live pipeline event stream over SSE.
type StreamHandler struct {
	broadcaster *services.Broadcaster
	keepAlive   time.Duration
}

// NewStreamHandler creates a new StreamHandler. keepAlive is the idle window
// before a comment frame is written to hold intermediaries open.
func NewStreamHandler(broadcaster *services.Broadcaster, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &StreamHandler{broadcaster: broadcaster, keepAlive: keepAlive}
}

// StreamEvents handles GET /events/stream. Every pipeline event published
// after the subscription is written as a `data:` frame; the subscription ends
// when the client disconnects or the broadcaster drops a stalled consumer.
func (h *StreamHandler) StreamEvents(c *gin.Context) {
	log := logger.GetLogger()

	events, unsubscribe := h.broadcaster.Subscribe()
	defer unsubscribe()

	log.Infow("Event stream subscriber connected",
		"clientIp", c.ClientIP(), "subscribers", h.broadcaster.SubscriberCount())

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()

	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			log.Infow("Event stream subscriber disconnected", "clientIp", c.ClientIP())
			return

		case event, ok := <-events:
			if !ok {
				// Dropped by the publisher for falling behind.
				log.Warnw("Event stream subscriber dropped", "clientIp", c.ClientIP())
				return
			}
			frame, err := json.Marshal(event)
			if err != nil {
				log.Errorw("Failed to marshal stream event", "error", err)
				continue
			}
			if _, err := c.Writer.WriteString("data: " + string(frame) + "\n\n"); err != nil {
				return
			}
			c.Writer.Flush()

		case <-keepAlive.C:
			if _, err := c.Writer.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
