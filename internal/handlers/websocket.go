package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/skillspace/skillspace/internal/logger"
	"github.com/skillspace/skillspace/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// ServeWS upgrades the request and hands the socket to the relay hub.
func ServeWS(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("failed to upgrade connection: %v", err)
			return
		}
		hub.Handle(conn)
	}
}
