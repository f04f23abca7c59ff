// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/identity"
)

// State is a connection session's position in its lifecycle.
type State int

const (
	// StateConnecting covers the handshake: room lookup, identity and access
	// checks. A denied session goes straight to StateClosed.
	StateConnecting State = iota
	// StateJoined means the client is registered with its room's group.
	StateJoined
	// StateClosed is terminal; nothing is delivered to a closed client.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FrameHandler receives decoded frames from a joined client.
type FrameHandler interface {
	HandleMessage(ctx context.Context, client *Client, text string)
	HandleTyping(client *Client, isTyping bool)
}

// Session is what the handshake established about a connection.
type Session struct {
	RoomID    int64
	Principal identity.Principal
	Addr      string
}

// Client represents one connection session: a WebSocket bound to a single
// room for its whole lifetime, plus its outbound queue.
type Client struct {
	id        string
	conn      *websocket.Conn
	hub       *Hub
	handler   FrameHandler
	roomID    int64
	principal identity.Principal
	addr      string
	log       *slog.Logger

	mu    sync.Mutex
	state State
	send  chan []byte

	maxMessageSize int64
	writeTimeout   time.Duration
	pongTimeout    time.Duration
	pingPeriod     time.Duration
	rateLimiter    *rateLimiter
}

// NewClient creates a Client in StateConnecting. conn may be nil for clients
// that are only used to observe fan-out.
func NewClient(conn *websocket.Conn, hub *Hub, session Session, cfg Config, handler FrameHandler) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		conn:      conn,
		hub:       hub,
		handler:   handler,
		roomID:    session.RoomID,
		principal: session.Principal,
		addr:      session.Addr,
		log: hub.log.With(
			"session_id", id,
			"room_id", session.RoomID,
			"user_id", session.Principal.ID,
			"remote_addr", session.Addr,
		),
		state:          StateConnecting,
		send:           make(chan []byte, cfg.SendQueueSize),
		maxMessageSize: cfg.MaxMessageSize,
		writeTimeout:   cfg.WriteTimeout,
		pongTimeout:    cfg.PongTimeout,
		pingPeriod:     cfg.pingPeriod(),
		rateLimiter:    newRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill),
	}
}

// ID returns the session id used in logs.
func (c *Client) ID() string { return c.id }

// RoomID returns the room the client is bound to.
func (c *Client) RoomID() int64 { return c.roomID }

// Principal returns the authenticated user behind the connection.
func (c *Client) Principal() identity.Principal { return c.principal }

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetSendChan returns the client's outbound queue for reading.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) markJoined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = StateJoined
	return true
}

// close moves the client to StateClosed and closes its queue, which makes
// the write pump send a close frame and exit.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	close(c.send)
}

// deliver enqueues ev without blocking. It returns false when the client is
// unreachable: already closed or with a full queue. Typing events that
// originate from this client's own user are suppressed and count as
// delivered.
func (c *Client) deliver(ev Event) bool {
	if ev.Type == FrameTyping && ev.UserEmail == c.principal.Email {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}

	select {
	case c.send <- ev.Payload:
		return true
	default:
		return false
	}
}

// setupReadConnection configures read limits, deadlines and the pong handler.
func (c *Client) setupReadConnection() {
	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})
}

// logReadError records why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "limit", c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		c.log.Info("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "reason", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		c.log.Warn("Rate limit exceeded; discarding frame")
		return false
	}
	return true
}

// processFrame decodes one inbound frame and routes it by type. Malformed
// frames and unknown types are dropped; the connection stays open.
func (c *Client) processFrame(raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		c.log.Debug("Discarding malformed frame", "error", err)
		return
	}

	switch frame.Type {
	case FrameMessage:
		c.handler.HandleMessage(c.hub.ctx, c, frame.Message)
	case FrameTyping:
		c.handler.HandleTyping(c, frame.IsTyping)
	default:
		c.log.Debug("Ignoring frame with unknown type", "type", frame.Type)
	}
}

// readPump runs the Joined state. Leaving the room is deferred so every exit
// path releases the membership.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c.roomID, c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		if !ok {
			return c.writeCloseMessage()
		}
		return c.writeTextMessage(message)
	case <-ticker.C:
		return c.writeControl(websocket.PingMessage, nil)
	}
}

// closeConnection closes the socket; closing an already closed socket is
// harmless.
func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection", "error", err)
	}
}

func (c *Client) writeCloseMessage() bool {
	c.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return false
}

func (c *Client) writeControl(messageType int, data []byte) bool {
	err := c.conn.WriteControl(messageType, data, time.Now().Add(c.writeTimeout))
	if err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing control frame", "type", messageType, "error", err)
		return false
	}
	return err == nil
}

// writeTextMessage writes one event per frame, bounded by the write timeout.
// A failed write ends the pump, which closes the socket and lets the read
// pump run the disconnect cleanup.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing message", "error", err)
		}
		return false
	}
	return true
}
