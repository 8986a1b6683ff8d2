package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market-chat/config"
	"market-chat/internal/domain/service"
	"market-chat/internal/repository/memory"
	"market-chat/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type socketFixture struct {
	server    *httptest.Server
	hub       *Hub
	roomID    uint
	requester services.AuthResponse
	provider  services.AuthResponse
	outsider  services.AuthResponse
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store := memory.NewStore()
	cfg := &config.Config{JWTSecret: "socket-secret", JWTExpiryMin: 15, RefreshExpiry: 7, ChatPageSize: 50}
	auth := services.NewAuthService(store.Users(), cfg)

	register := func(name, email string) services.AuthResponse {
		res, err := auth.Register(ctx, services.RegisterInput{Name: name, Email: email, Password: "password123"})
		require.NoError(t, err)
		return res
	}
	f := &socketFixture{
		requester: register("Requester", "requester@example.com"),
		provider:  register("Provider", "provider@example.com"),
		outsider:  register("Outsider", "outsider@example.com"),
	}

	svc := &service.Service{
		UserID:      f.requester.User.ID,
		Title:       "Paint the fence",
		Method:      service.MethodVisit,
		ServiceDate: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Status:      service.StatusOpen,
	}
	require.NoError(t, store.Services().Create(ctx, svc))

	rooms := services.NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	chats := services.NewChatService(store.Chats(), store.Rooms(), store.Users(), nil, cfg.ChatPageSize)
	rm, _, err := rooms.Open(ctx, f.provider.User.ID, svc.ID)
	require.NoError(t, err)
	f.roomID = rm.ID

	f.hub = NewHub(nil)
	handler := NewHandler(auth, rooms, chats, f.hub)

	r := gin.New()
	r.GET("/api/chats/socketio", handler.Connect)
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	t.Cleanup(f.hub.Close)
	return f
}

func (f *socketFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chats/socketio?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	body, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: body}))
}

func next(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestSocketRejectsMissingToken(t *testing.T) {
	f := newSocketFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chats/socketio"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocketBearerHeader(t *testing.T) {
	f := newSocketFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/chats/socketio"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.provider.AccessToken)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSocketChatFlow(t *testing.T) {
	f := newSocketFixture(t)
	requester := f.dial(t, f.requester.AccessToken)
	provider := f.dial(t, f.provider.AccessToken)

	emit(t, requester, EventJoinRoom, f.roomID)
	emit(t, provider, EventJoinRoom, jsonString(f.roomID))
	require.Eventually(t, func() bool { return f.hub.RoomSize(f.roomID) == 2 }, 2*time.Second, 10*time.Millisecond)

	// userId in the payload is ignored.
	emit(t, provider, EventSend, map[string]any{
		"roomId": jsonString(f.roomID),
		"userId": f.requester.User.ID,
		"chat":   "  hello there ",
	})

	got := next(t, requester)
	require.Equal(t, EventReceive, got.Event)
	var received struct {
		ID     uint   `json:"id"`
		RoomID uint   `json:"roomId"`
		Chat   string `json:"chat"`
		User   struct {
			ID   uint   `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
		CreatedAt time.Time `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &received))
	assert.NotZero(t, received.ID)
	assert.Equal(t, f.roomID, received.RoomID)
	assert.Equal(t, "hello there", received.Chat)
	assert.Equal(t, f.provider.User.ID, received.User.ID)
	assert.Equal(t, "Provider", received.User.Name)
	assert.False(t, received.CreatedAt.IsZero())

	// The sender gets no echo, so its next frame is the error for this blank chat.
	emit(t, provider, EventSend, map[string]any{"roomId": f.roomID, "chat": "   "})
	got = next(t, provider)
	assert.Equal(t, EventError, got.Event)
	assert.Contains(t, string(got.Data), "chat is empty")

	emit(t, provider, EventSend, map[string]any{"roomId": f.roomID, "chat": strings.Repeat("a", 1001)})
	got = next(t, provider)
	assert.Equal(t, EventError, got.Event)
	assert.Contains(t, string(got.Data), "too long")
}

func TestSocketErrors(t *testing.T) {
	f := newSocketFixture(t)
	outsider := f.dial(t, f.outsider.AccessToken)

	emit(t, outsider, EventJoinRoom, f.roomID)
	got := next(t, outsider)
	assert.Equal(t, EventError, got.Event)
	assert.Contains(t, string(got.Data), "not a member")
	assert.Equal(t, 0, f.hub.RoomSize(f.roomID))

	emit(t, outsider, EventSend, map[string]any{"roomId": f.roomID, "chat": "hi"})
	got = next(t, outsider)
	assert.Equal(t, EventError, got.Event)
	assert.Contains(t, string(got.Data), "room not joined")

	emit(t, outsider, "onDance", nil)
	got = next(t, outsider)
	assert.Equal(t, EventError, got.Event)
	assert.JSONEq(t, `{"message":"unknown event"}`, string(got.Data))

	require.NoError(t, outsider.WriteMessage(websocket.TextMessage, []byte("not json")))
	got = next(t, outsider)
	assert.JSONEq(t, `{"message":"invalid frame"}`, string(got.Data))
}

func TestSocketLeaveAndRoomClosed(t *testing.T) {
	f := newSocketFixture(t)
	requester := f.dial(t, f.requester.AccessToken)
	provider := f.dial(t, f.provider.AccessToken)

	emit(t, requester, EventJoinRoom, f.roomID)
	emit(t, provider, EventJoinRoom, f.roomID)
	require.Eventually(t, func() bool { return f.hub.RoomSize(f.roomID) == 2 }, 2*time.Second, 10*time.Millisecond)

	emit(t, provider, EventLeaveRoom, f.roomID)
	require.Eventually(t, func() bool { return f.hub.RoomSize(f.roomID) == 1 }, 2*time.Second, 10*time.Millisecond)

	f.hub.NotifyRoomClosed(context.Background(), f.roomID)
	got := next(t, requester)
	assert.Equal(t, EventRoomClosed, got.Event)
	assert.Equal(t, 0, f.hub.RoomSize(f.roomID))
}

func jsonString(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
