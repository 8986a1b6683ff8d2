package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"market-chat/config"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"
	"market-chat/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	closed    []uint
	accepted  []uint
	completed map[uint]uint
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{completed: make(map[uint]uint)}
}

func (n *recordingNotifier) NotifyRoomClosed(ctx context.Context, roomID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, roomID)
}

func (n *recordingNotifier) NotifyRoomAccepted(ctx context.Context, roomID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, roomID)
}

func (n *recordingNotifier) NotifyServiceCompleted(ctx context.Context, roomID, serviceID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed[roomID] = serviceID
}

type mapCache struct {
	items map[uint]service.Service
	hits  int
}

func newMapCache() *mapCache { return &mapCache{items: make(map[uint]service.Service)} }

func (c *mapCache) GetService(ctx context.Context, id uint) (*service.Service, error) {
	s, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &s, nil
}

func (c *mapCache) SetService(ctx context.Context, s service.Service) error {
	c.items[s.ID] = s
	return nil
}

func (c *mapCache) InvalidateService(ctx context.Context, id uint) error {
	delete(c.items, id)
	return nil
}

type fakeStorage struct{}

func (fakeStorage) PresignPut(ctx context.Context, key, contentType string, size int64) (string, map[string]string, error) {
	return "https://bucket.example/" + key + "?sig=1", map[string]string{"Content-Type": contentType}, nil
}

func (fakeStorage) FileURL(key string) string { return "https://cdn.example/" + key }

type countingLimiter struct {
	limit int
	calls map[uint]int
}

func (l *countingLimiter) AllowChat(ctx context.Context, userID uint) (bool, error) {
	if l.calls == nil {
		l.calls = make(map[uint]int)
	}
	l.calls[userID]++
	return l.calls[userID] <= l.limit, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:     "test-secret",
		JWTExpiryMin:  15,
		RefreshExpiry: 7,
		ChatPageSize:  50,
	}
}

func seedUser(t *testing.T, store *memory.Store, name, email string) user.User {
	t.Helper()
	u := &user.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return *u
}

func seedService(t *testing.T, store *memory.Store, ownerID uint) service.Service {
	t.Helper()
	svc := &service.Service{
		UserID:      ownerID,
		Title:       "Fix my sink",
		Method:      service.MethodVisit,
		ServiceDate: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		Status:      service.StatusOpen,
	}
	require.NoError(t, store.Services().Create(context.Background(), svc))
	return *svc
}
