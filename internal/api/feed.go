package api

import (
	"context"
	"time"

	"finboard/internal/dashboard"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Feed upgrades to a WebSocket and streams the caller's summary until the client goes away.
// It accepts the same query parameters as Summary.
func (h *Handler) Feed(c *gin.Context) {
	opts, err := summaryOptions(c)
	if err != nil {
		writeError(c, err)
		return
	}
	user := userID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("HTTP: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends data; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.svc.Feed(ctx, user, opts, func(u dashboard.FeedUpdate) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(u)
	})
	if err != nil {
		h.logger.Debug("HTTP: feed ended", "user", user, "error", err)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
