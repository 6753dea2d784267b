// Package client is a Go client for the SkillSpace relay. It implements
// the reconnection contract the relay assumes: on unexpected close the
// client redials on a fixed interval for a bounded number of attempts,
// re-sends identify after every reconnect, and silently loses whatever
// was in flight when the connection dropped.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/skillspace/skillspace/protocol"
)

const (
	defaultReconnectInterval = 3 * time.Second
	defaultMaxReconnects     = 5
)

// Handler receives the raw bytes of an envelope of a subscribed type.
type Handler func(data []byte)

// Options tune the reconnection behaviour. Zero values select defaults.
type Options struct {
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	Logger               *zap.Logger
}

// Client is a single WebSocket connection to the relay, bound to one
// user ID via the identify handshake.
type Client struct {
	url    string
	userID int
	opts   Options
	log    *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[protocol.EnvelopeType][]Handler
	closed   bool
}

// Dial connects to the relay URL (e.g. ws://host:8080/ws), sends the
// identify envelope for userID and starts the read loop.
func Dial(ctx context.Context, url string, userID int, opts Options) (*Client, error) {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = defaultReconnectInterval
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = defaultMaxReconnects
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		url:      url,
		userID:   userID,
		opts:     opts,
		log:      opts.Logger,
		handlers: make(map[protocol.EnvelopeType][]Handler),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// On registers a handler for an envelope type. Handlers run on the read
// loop; they must not block.
func (c *Client) On(envelopeType protocol.EnvelopeType, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[envelopeType] = append(c.handlers[envelopeType], h)
}

// Send marshals v and writes it to the relay.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("client: not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Identify re-sends the identify handshake for the bound user ID.
func (c *Client) Identify() error {
	return c.Send(protocol.Envelope{
		Type:   protocol.EnvelopeIdentify,
		UserID: protocol.FlexID(c.userID),
	})
}

// Close shuts the connection down and disables reconnection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if c.userID > 0 {
		if err := c.Identify(); err != nil {
			conn.Close()
			return err
		}
	}
	return nil
}

func (c *Client) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		c.dispatch(data)
	}
}

// reconnect redials on a fixed interval. Reports whether a new
// connection was established.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= c.opts.MaxReconnectAttempts; attempt++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return false
		}
		c.mu.Unlock()

		time.Sleep(c.opts.ReconnectInterval)
		c.log.Info("reconnecting to relay", zap.Int("attempt", attempt))

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.ReconnectInterval)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			return true
		}
		c.log.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return false
}

func (c *Client) dispatch(data []byte) {
	var head struct {
		Type protocol.EnvelopeType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		c.log.Warn("unparseable envelope from relay", zap.Error(err))
		return
	}

	c.mu.Lock()
	handlers := append([]Handler(nil), c.handlers[head.Type]...)
	c.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}
