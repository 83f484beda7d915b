package controller

import (
	"encoding/json"
	"io"

	"crescer/pkg/types/pubsub"

	"github.com/gin-gonic/gin"
)

// SSEPrices godoc
// @Summary Stream live prices
// @Description Server-Sent Events endpoint for spot price updates in every currency
// @Tags prices
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Router /api/prices/stream [get]
func SSEPrices(sub pubsub.Subscriber) gin.HandlerFunc {
	return stream(sub, "prices", nil)
}

// ImportProgressStream godoc
// @Summary Stream import progress
// @Description Server-Sent Events with the caller's import status messages
// @Tags imports
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "SSE stream"
// @Router /api/imports/stream [get]
func (c *Controller) ImportProgressStream(ctx *gin.Context) {
	if c.importProgress == nil {
		serviceUnavailable(ctx, "Import progress stream not available")
		return
	}
	owner := userID(ctx)
	stream(c.importProgress, "progress", func(msg []byte) bool {
		var ev struct {
			UserID string `json:"user_id"`
		}
		return json.Unmarshal(msg, &ev) == nil && ev.UserID == owner
	})(ctx)
}

// stream relays every message from a fresh subscription until the client
// goes away. keep, when set, filters messages.
func stream(sub pubsub.Subscriber, event string, keep func([]byte) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, unsubscribe, err := sub.Subscribe()
		if err != nil {
			serviceUnavailable(c, "Stream not available")
			return
		}
		defer unsubscribe()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case msg, ok := <-ch:
				if !ok {
					return false
				}
				if keep != nil && !keep(msg) {
					return true
				}
				c.SSEvent(event, string(msg))
				c.Writer.Flush()
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
