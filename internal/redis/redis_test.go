package redis

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := splitAddr(mr.Addr())

	client, err := Connect(context.Background(), Config{Host: host, Port: port})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Connect(context.Background(), Config{Host: host, Port: port})
	assert.Error(t, err)
}

func TestRateLimiterChat(t *testing.T) {
	client, mr := newTestClient(t)
	limiter := NewRateLimiter(client, RateLimitConfig{ChatLimit: 2, ChatWindow: time.Minute, AuthLimit: 1, AuthWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.AllowChat(ctx, 7)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.AllowChat(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.AllowChat(ctx, 8)
	require.NoError(t, err)
	assert.True(t, ok, "limits are per user")

	mr.FastForward(61 * time.Second)
	ok, err = limiter.AllowChat(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRateLimiterAuth(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, RateLimitConfig{ChatLimit: 1, ChatWindow: time.Minute, AuthLimit: 1, AuthWindow: time.Minute})
	ctx := context.Background()

	res, err := limiter.AllowAuth(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, err = limiter.AllowAuth(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, limiter.ResetAuth(ctx, "10.0.0.1"))
	res, err = limiter.AllowAuth(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestPresenceStore(t *testing.T) {
	client, mr := newTestClient(t)
	presence := NewPresenceStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, presence.Join(ctx, 3, 10, "tab-a"))
	require.NoError(t, presence.Join(ctx, 3, 10, "tab-b"))
	require.NoError(t, presence.Join(ctx, 3, 2, "c1"))
	assert.True(t, mr.Exists("presence:room:3"))

	ids, err := presence.RoomMembers(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 10}, ids)

	require.NoError(t, presence.Leave(ctx, 3, 10, "tab-a"))
	ids, err = presence.RoomMembers(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 10}, ids, "second tab keeps the user present")

	require.NoError(t, presence.Leave(ctx, 3, 10, "tab-b"))
	ids, err = presence.RoomMembers(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids)

	require.NoError(t, presence.Clear(ctx, 3))
	ids, err = presence.RoomMembers(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCacheStoreService(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCacheStore(client, CacheConfig{ServiceTTL: time.Minute})
	ctx := context.Background()

	miss, err := cache.GetService(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, miss)

	svc := service.Service{ID: 5, UserID: 1, Title: "Walk the dog", Method: service.MethodVisit, Status: service.StatusOpen}
	svc.User = user.User{
		ID:           1,
		Name:         "Owner",
		PasswordHash: "$2a$10$SECRETHASH",
		Sessions:     []user.UserSession{{RefreshTokenHash: "refresh-hash"}},
	}
	require.NoError(t, cache.SetService(ctx, svc))

	raw, err := mr.Get("service:5")
	require.NoError(t, err)
	assert.NotContains(t, raw, "SECRETHASH")
	assert.NotContains(t, raw, "refresh-hash")

	hit, err := cache.GetService(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "Walk the dog", hit.Title)
	assert.Equal(t, "Owner", hit.User.Name)
	assert.Empty(t, hit.User.PasswordHash)

	mr.FastForward(2 * time.Minute)
	expired, err := cache.GetService(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, expired)

	require.NoError(t, cache.SetService(ctx, svc))
	require.NoError(t, cache.InvalidateService(ctx, 5))
	gone, err := cache.GetService(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPublishSubscribeRoomChannels(t *testing.T) {
	client, _ := newTestClient(t)
	pub := NewPublisher(client)
	sub := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	got := map[string]string{}
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- sub.Subscribe(ctx, []string{RoomChannelPattern}, func() { close(ready) }, func(channel string, payload []byte) {
			mu.Lock()
			got[channel] = string(payload)
			mu.Unlock()
		})
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not confirmed")
	}

	require.NoError(t, pub.PublishRoom(context.Background(), 4, []byte(`{"event":"onReceive"}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["channel:room:4"] == `{"event":"onReceive"}`
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func splitAddr(addr string) (string, string, error) {
	host, port, err := net.SplitHostPort(addr)
	return host, port, err
}
