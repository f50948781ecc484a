package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/config"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	dispatchWait   = 10 * time.Second
	defaultBuffer  = 256
	defaultMaxSize = 4096
)

// Dispatcher handles decoded frames on behalf of a client. A returned
// error is reported back to that client as an error event.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Client, event InboundEvent) error
}

// Client is one authenticated websocket connection
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	identity auth.Identity
	addr     string

	// guarded by hub.mutex
	closed bool

	maxMessageSize int64
	rateLimiter    *rateLimiter
	dispatcher     Dispatcher
	logger         *slog.Logger
}

// NewClient builds a client for an upgraded connection. conn may be nil in tests.
func NewClient(conn *websocket.Conn, hub *Hub, identity auth.Identity, addr string, cfg config.WebSocketConfig, dispatcher Dispatcher) *Client {
	buffer := cfg.SendBufferSize
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if conn != nil {
		conn.SetReadLimit(maxSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, buffer),
		hub:            hub,
		identity:       identity,
		addr:           addr,
		maxMessageSize: maxSize,
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitInterval),
		dispatcher:     dispatcher,
		logger:         hub.logger.With("client_id", id, "user_id", identity.UserID),
	}
}

func (c *Client) ID() string              { return c.id }
func (c *Client) Identity() auth.Identity { return c.identity }

// Addr is the remote address the connection was accepted from
func (c *Client) Addr() string { return c.addr }

// Messages exposes the outgoing queue
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// SendError queues an error frame for this client only
func (c *Client) SendError(message string) bool {
	return c.hub.SendTo(c, NewErrorEvent(message))
}

func (c *Client) String() string {
	return fmt.Sprintf("%s(%s@%s)", c.id, c.identity.Username, c.addr)
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("Failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError reports whether the read loop should stop
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("Frame exceeded maximum size", "max_bytes", c.maxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.logger.Debug("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("Connection closed", "reason", err)
	default:
		c.logger.Warn("Unexpected websocket read error", "error", err)
	}
	return true
}

func (c *Client) processFrame(raw []byte) {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.logger.Warn("Rate limit exceeded; discarding frame")
		c.SendError("You are sending messages too quickly.")
		return
	}

	var event InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.Event == "" {
		c.SendError("Malformed event.")
		return
	}

	ctx, cancel := context.WithTimeout(c.hub.Context(), dispatchWait)
	defer cancel()

	if err := c.dispatcher.Dispatch(ctx, c, event); err != nil {
		c.SendError(err.Error())
	}
}

func (c *Client) readPump() {
	defer func() {
		_ = c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			return
		}
		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeFrame(message, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

func (c *Client) writeFrame(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}

	if !ok {
		// hub closed the queue
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Failed to write frame", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("Failed to write ping", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.logger.Warn("Error closing connection", "error", err)
	}
}
