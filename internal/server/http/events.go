package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mvaz/chathub/internal/events"
)

// streamEvents is the live feed of a channel as server-sent events.
// Only participants may listen. The stream stays open until the client
// disconnects or the hub shuts down; keep-alive events hold idle
// connections open through proxies.
func (s *Server) streamEvents(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}

	user := currentUser(c)
	parts, err := s.channels.GetUsersOfChannel(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	member := false
	for _, p := range parts {
		if p.UserID == user.ID {
			member = true
			break
		}
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not on the channel"})
		return
	}

	sub := s.hub.Subscribe(id)
	defer sub.Close()
	if s.metrics != nil {
		s.metrics.EventListeners.Inc()
		defer s.metrics.EventListeners.Dec()
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, open := <-sub.C:
			if !open {
				return
			}
			writeSignal(c, sig)
			c.Writer.Flush()
		}
	}
}

func writeSignal(c *gin.Context, sig events.Signal) {
	switch {
	case sig.Message != nil:
		c.SSEvent("message", toMessageDTO(*sig.Message))
	case sig.KeepAlive != nil:
		c.SSEvent("keep-alive", sig.KeepAlive.Format(time.RFC3339))
	}
}
