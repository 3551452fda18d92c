package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gridbot/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// same-origin is not enforced: the API binds locally and auth is
	// already checked by the JWT middleware before the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket streams account status snapshots every second until
// the client goes away
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("⚠️  WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	logger.Debugf("websocket client connected: %s", conn.RemoteAddr())

	// discard inbound frames, detect disconnect
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(gin.H{
			"time":     time.Now().UTC(),
			"accounts": s.runner.Statuses(),
		}); err != nil {
			logger.Debugf("websocket client gone: %v", err)
			return
		}
	}
}
