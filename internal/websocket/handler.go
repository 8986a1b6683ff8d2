package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"market-chat/internal/metrics"
	"market-chat/internal/middleware"
	"market-chat/internal/services"
	"market-chat/internal/transport/httpdto"
	market_errors "market-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades chat connections and dispatches their events.
type Handler struct {
	auth  *services.AuthService
	rooms *services.RoomService
	chats *services.ChatService
	hub   *Hub
}

func NewHandler(auth *services.AuthService, rooms *services.RoomService, chats *services.ChatService, hub *Hub) *Handler {
	return &Handler{auth: auth, rooms: rooms, chats: chats, hub: hub}
}

// Connect serves GET /api/chats/socketio.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = middleware.ExtractBearer(c)
	}

	userID, _, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Error("websocket upgrade failed", userID, "", err)
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	// The request context ends when the handler returns, so the connection
	// gets its own lifetime.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()
	client.readPump(ctx, h)
}

func (h *Handler) Dispatch(ctx context.Context, c *Client, env Envelope) {
	var err error
	switch env.Event {
	case EventJoinRoom:
		err = h.joinRoom(ctx, c, env.Data)
	case EventSend:
		err = h.sendChat(ctx, c, env.Data)
	case EventLeaveRoom:
		err = h.leaveRoom(ctx, c, env.Data)
	default:
		metrics.RecordSocketEvent("unknown", "error")
		c.EmitError("unknown event")
		return
	}

	if err != nil {
		metrics.RecordSocketEvent(env.Event, "error")
		c.EmitError(socketErrorMessage(err))
		if services.HTTPStatus(err) == http.StatusInternalServerError {
			h.hub.logger.Error("socket event failed", c.UserID, c.ID, err, zap.String("socket_event", env.Event))
		}
		return
	}
	metrics.RecordSocketEvent(env.Event, "ok")
}

func (h *Handler) joinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var roomID RoomID
	if err := json.Unmarshal(data, &roomID); err != nil {
		return market_errors.ErrInvalidInput
	}
	if _, err := h.rooms.Authorize(ctx, c.UserID, uint(roomID)); err != nil {
		return err
	}
	h.hub.Join(ctx, c, uint(roomID))
	return nil
}

func (h *Handler) leaveRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var roomID RoomID
	if err := json.Unmarshal(data, &roomID); err != nil {
		return market_errors.ErrInvalidInput
	}
	h.hub.Leave(ctx, c, uint(roomID))
	return nil
}

func (h *Handler) sendChat(ctx context.Context, c *Client, data json.RawMessage) error {
	var payload SendPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return market_errors.ErrInvalidInput
	}
	roomID := uint(payload.RoomID)
	if !h.hub.InRoom(c, roomID) {
		return market_errors.ErrNotJoined
	}

	created, err := h.chats.Send(ctx, c.UserID, roomID, payload.Chat)
	if err != nil {
		return err
	}

	frame, err := encodeFrame(EventReceive, httpdto.FromChat(created))
	if err != nil {
		return err
	}
	h.hub.Broadcast(ctx, roomID, frame, c.ID)
	return nil
}

func socketErrorMessage(err error) string {
	if services.HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
