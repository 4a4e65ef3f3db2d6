package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/state"
)

const keepAliveInterval = 25 * time.Second

// EventSource is the state container seen by streaming clients.
type EventSource interface {
	Dashboard() models.Dashboard
	Subscribe() (<-chan state.Event, func())
}

// StreamHandler pushes dashboard updates and notifications as server-sent events.
type StreamHandler struct {
	source EventSource
	logger *zap.Logger
}

// NewStreamHandler constructs the SSE handler.
func NewStreamHandler(source EventSource, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{source: source, logger: defaultLogger(logger)}
}

// Events streams the current dashboard followed by every later event until the client leaves.
func (h *StreamHandler) Events(c *gin.Context) {
	events, cancel := h.source.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(string(state.EventDashboard), h.source.Dashboard())
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			switch ev.Type {
			case state.EventDashboard:
				c.SSEvent(string(ev.Type), ev.Dashboard)
			case state.EventNotification:
				c.SSEvent(string(ev.Type), ev.Notification)
			}
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().Unix()})
			return true
		}
	})
	h.logger.Debug("event stream closed", zap.String("client_ip", c.ClientIP()))
}
