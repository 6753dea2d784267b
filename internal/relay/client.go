package relay

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one registry entry: a live WebSocket connection, its opaque
// client ID and the optionally bound user ID. The socket is owned
// exclusively by the pumps; all other code talks to the send channel.
type Client struct {
	ID     string
	userID int // 0 until identify succeeds; guarded by hub.mu

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error",
					zap.String("clientId", c.ID), zap.Error(err))
			}
			break
		}

		// Per-message failures are logged and dropped; the connection
		// stays open and nothing is surfaced to the sender.
		if err := c.hub.dispatch(c, raw); err != nil {
			c.hub.log.Debug("envelope dropped",
				zap.String("clientId", c.ID), zap.Error(err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Warn("websocket write error",
					zap.String("clientId", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands data to the write pump without blocking. A full buffer
// drops the message; a slow consumer must not stall the whole relay.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("send buffer full, dropping message",
			zap.String("clientId", c.ID))
	}
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.hub.log.Error("marshal outbound envelope",
			zap.String("clientId", c.ID), zap.Error(err))
		return
	}
	c.enqueue(data)
}
