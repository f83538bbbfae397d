package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
)

// HandleTodoChanges upgrades to a websocket and streams the changes of the
// caller's todos until either side goes away.
func (h *handlerImpl) HandleTodoChanges(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.options.AllowedOrigins,
	})
	if err != nil {
		// Accept has already written the error response.
		h.logger.Error().
			Err(err).
			Msg("failed to accept websocket")
		c.Abort()
		return
	}
	defer func() { _ = conn.CloseNow() }()

	sub := h.changes.Subscribe(userID)
	defer sub.Close()
	h.logger.Info().
		Str("user_id", userID).
		Msg("realtime client connected")

	// Clients never send anything, CloseRead handles control frames
	// and cancels ctx once the peer is gone.
	ctx := conn.CloseRead(c.Request.Context())

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().
				Str("user_id", userID).
				Msg("realtime client disconnected")
			return
		case change, ok := <-sub.C():
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, h.options.WriteTimeout)
			err = wsjson.Write(writeCtx, conn, change)
			cancel()
			if err != nil {
				h.logger.Error().
					Err(err).
					Str("user_id", userID).
					Msg("failed to write todo change")
				return
			}
			h.logger.Debug().
				Str("user_id", userID).
				Str("type", change.Type).
				Msg("sent todo change")
		}
	}
}

func (h *handlerImpl) HandleHealth(c *gin.Context) {
	if h.options.Ping == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c, 2*time.Second)
	defer cancel()

	err := h.options.Ping(ctx)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
