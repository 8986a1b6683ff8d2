package websocket

import (
	"context"
	"encoding/json"
	"time"

	"market-chat/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256

	// Inbound frames per second with a small burst for join+send bursts.
	inboundRate  = 5
	inboundBurst = 10
)

// Dispatcher handles one decoded inbound frame.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Client, env Envelope)
}

// Client is one socket connection. rooms and closed are guarded by the hub lock.
type Client struct {
	ID     string
	UserID uint

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	rooms   map[uint]struct{}
	closed  bool
	limiter *rate.Limiter
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:      uuid.New().String(),
		UserID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		rooms:   make(map[uint]struct{}),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
	}
}

// enqueue requires the hub lock. A full buffer drops the frame.
func (c *Client) enqueue(frame []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		metrics.SocketFrameDropped()
		c.hub.logger.Warn("client send buffer full", c.UserID, c.ID)
	}
}

// Emit queues a server event for this connection only.
func (c *Client) Emit(event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.hub.logger.Error("encode frame failed", c.UserID, c.ID, err)
		return
	}
	c.hub.sendTo(c, frame)
}

func (c *Client) EmitError(message string) {
	c.Emit(EventError, ErrorPayload{Message: message})
}

func (c *Client) readPump(ctx context.Context, d Dispatcher) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Error("websocket unexpected close", c.UserID, c.ID, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			metrics.RecordSocketEvent("invalid", "error")
			c.EmitError("invalid frame")
			continue
		}

		if !c.limiter.Allow() {
			metrics.RecordSocketEvent(env.Event, "rate_limited")
			c.EmitError("rate limited")
			continue
		}

		d.Dispatch(ctx, c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
