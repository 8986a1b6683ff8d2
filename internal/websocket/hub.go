package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"market-chat/internal/metrics"

	"go.uber.org/zap"
)

// PresenceTracker records which connections are joined to which rooms.
type PresenceTracker interface {
	Join(ctx context.Context, roomID, userID uint, clientID string) error
	Leave(ctx context.Context, roomID, userID uint, clientID string) error
	Clear(ctx context.Context, roomID uint) error
}

// Broadcaster carries a room frame to every instance. The local hub delivers
// directly when no broadcaster is set.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID uint, frame []byte, originID string, closeRoom bool) error
}

// Hub tracks live connections and the rooms they joined.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// rooms maps room ID to the set of joined clients
	rooms map[uint]map[*Client]struct{}

	presence    PresenceTracker
	broadcaster Broadcaster
	logger      *Logger
}

func NewHub(presence PresenceTracker) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[uint]map[*Client]struct{}),
		presence: presence,
		logger:   NewLogger(),
	}
}

// SetBroadcaster routes room frames through b, typically a Redis bridge.
func (h *Hub) SetBroadcaster(b Broadcaster) {
	h.mu.Lock()
	h.broadcaster = b
	h.mu.Unlock()
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	metrics.SocketConnected()
	h.logger.Info("client connected", client.UserID, client.ID)
}

// Unregister drops the client from every room and closes its send buffer.
// Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	joined := make([]uint, 0, len(client.rooms))
	for roomID := range client.rooms {
		h.removeFromRoom(client, roomID)
		joined = append(joined, roomID)
	}
	client.closed = true
	close(client.send)
	h.mu.Unlock()

	if h.presence != nil {
		for _, roomID := range joined {
			if err := h.presence.Leave(context.Background(), roomID, client.UserID, client.ID); err != nil {
				h.logger.Warn("presence leave failed", client.UserID, client.ID, zap.Uint("room_id", roomID), zap.Error(err))
			}
		}
	}

	metrics.SocketDisconnected()
	h.logger.Info("client disconnected", client.UserID, client.ID)
}

// Join subscribes the client to room frames. Membership must be checked by the caller.
func (h *Hub) Join(ctx context.Context, client *Client, roomID uint) {
	h.mu.Lock()
	if client.closed {
		h.mu.Unlock()
		return
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	client.rooms[roomID] = struct{}{}
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Join(ctx, roomID, client.UserID, client.ID); err != nil {
			h.logger.Warn("presence join failed", client.UserID, client.ID, zap.Uint("room_id", roomID), zap.Error(err))
		}
	}
}

func (h *Hub) Leave(ctx context.Context, client *Client, roomID uint) {
	h.mu.Lock()
	h.removeFromRoom(client, roomID)
	h.mu.Unlock()

	if h.presence != nil {
		if err := h.presence.Leave(ctx, roomID, client.UserID, client.ID); err != nil {
			h.logger.Warn("presence leave failed", client.UserID, client.ID, zap.Uint("room_id", roomID), zap.Error(err))
		}
	}
}

func (h *Hub) InRoom(client *Client, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[roomID]
	return ok
}

// Broadcast sends a frame to every connection joined to the room except the
// one identified by originID.
func (h *Hub) Broadcast(ctx context.Context, roomID uint, frame []byte, originID string) {
	h.route(ctx, roomID, frame, originID, false)
}

// NotifyRoomClosed tells the room the conversation is gone and unsubscribes everyone.
func (h *Hub) NotifyRoomClosed(ctx context.Context, roomID uint) {
	frame, err := encodeFrame(EventRoomClosed, RoomClosedPayload{RoomID: roomID})
	if err != nil {
		return
	}
	h.route(ctx, roomID, frame, "", true)

	if h.presence != nil {
		if err := h.presence.Clear(ctx, roomID); err != nil {
			h.logger.Warn("presence clear failed", 0, "", zap.Uint("room_id", roomID), zap.Error(err))
		}
	}
}

func (h *Hub) NotifyRoomAccepted(ctx context.Context, roomID uint) {
	frame, err := encodeFrame(EventRoomAccepted, RoomAcceptedPayload{RoomID: roomID})
	if err != nil {
		return
	}
	h.route(ctx, roomID, frame, "", false)
}

func (h *Hub) NotifyServiceCompleted(ctx context.Context, roomID, serviceID uint) {
	frame, err := encodeFrame(EventServiceCompleted, ServiceCompletedPayload{ServiceID: serviceID, RoomID: roomID})
	if err != nil {
		return
	}
	h.route(ctx, roomID, frame, "", false)
}

func (h *Hub) route(ctx context.Context, roomID uint, frame []byte, originID string, closeRoom bool) {
	h.mu.RLock()
	b := h.broadcaster
	h.mu.RUnlock()

	if b != nil {
		err := b.Broadcast(ctx, roomID, frame, originID, closeRoom)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrBridgeNotSubscribed):
		default:
			h.logger.Warn("broadcast failed, delivering locally", 0, originID, zap.Uint("room_id", roomID), zap.Error(err))
		}
	}
	h.Deliver(roomID, frame, originID, closeRoom)
}

// Deliver writes a frame to this instance's connections in the room.
func (h *Hub) Deliver(roomID uint, frame []byte, originID string, closeRoom bool) {
	if closeRoom {
		h.mu.Lock()
		defer h.mu.Unlock()
	} else {
		h.mu.RLock()
		defer h.mu.RUnlock()
	}

	for client := range h.rooms[roomID] {
		if client.ID == originID {
			continue
		}
		client.enqueue(frame)
	}

	if closeRoom {
		for client := range h.rooms[roomID] {
			delete(client.rooms, roomID)
		}
		delete(h.rooms, roomID)
	}
}

// sendTo queues a frame for a single client.
func (h *Hub) sendTo(client *Client, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client.enqueue(frame)
}

// RoomMembers lists the distinct users with a connection joined to the room
// on this instance, in ascending order.
func (h *Hub) RoomMembers(ctx context.Context, roomID uint) ([]uint, error) {
	h.mu.RLock()
	seen := make(map[uint]struct{}, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		seen[client.UserID] = struct{}{}
	}
	h.mu.RUnlock()

	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// removeFromRoom requires h.mu held for writing.
func (h *Hub) removeFromRoom(client *Client, roomID uint) {
	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(client.rooms, roomID)
}
