// Package server manages individual WebSocket clients, handling send
// queueing, keepalive, rate limiting, and lifecycle control for each
// connection.
package server

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client wraps a single WebSocket connection. It implements Conn for the
// room layer: sends are queued on a buffered channel drained by writePump,
// so a slow peer only backs up its own queue.
type Client struct {
	id   string
	conn *websocket.Conn
	addr string
	send chan []byte

	mu     sync.Mutex
	closed bool

	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a new Client instance for an upgraded WebSocket
// connection. The send channel is buffered to absorb bursts of broadcast
// traffic.
func NewClient(conn *websocket.Conn, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		addr:           addr,
		send:           make(chan []byte, 256),
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the connection's correlation identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Send queues a payload for delivery and reports whether it was accepted.
// It never blocks: a full queue or an already closed client drops the
// payload and returns false.
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close terminates the connection with the given close code and reason. It
// is safe to call more than once; only the first call writes the close
// frame.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// The close frame goes out before the send channel is closed so the
	// writePump cannot tear the connection down first and lose the reason.
	deadline := time.Now().Add(time.Second)
	if err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close frame to %s: %v", c.addr, err)
		}
	}

	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection from %s: %v", c.addr, err)
		}
	}

	c.mu.Lock()
	close(c.send)
	c.mu.Unlock()
}

// setupReadConnection configures read deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// Receive blocks until the next message arrives from the peer. Any error is
// a disconnect signal: the error is logged with appropriate severity and the
// caller tears the connection down.
func (c *Client) Receive() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		c.logReadError(err)
		return nil, err
	}
	return payload, nil
}

// allowMessage checks the per-connection rate limit and reports whether the
// message should be processed.
func (c *Client) allowMessage() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message",
			c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// logReadError logs the read failure with a message matching its cause.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", c.addr, err)
	}
}

// writePump pumps queued messages to the WebSocket connection and keeps it
// alive with periodic pings. One writePump goroutine runs per connection;
// all writes go through it so there is at most one writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in writePump: %v", err)
			}
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				// Close drained the channel; the close frame is
				// written there.
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing message to %s: %v", c.addr, err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
