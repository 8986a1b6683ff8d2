package services

import (
	"context"

	"market-chat/internal/domain/service"
)

// ServiceCache is a read-through cache for single service lookups.
// GetService returns nil, nil on a miss.
type ServiceCache interface {
	GetService(ctx context.Context, id uint) (*service.Service, error)
	SetService(ctx context.Context, s service.Service) error
	InvalidateService(ctx context.Context, id uint) error
}

// RoomNotifier pushes server initiated events to connections joined to a room.
type RoomNotifier interface {
	NotifyRoomClosed(ctx context.Context, roomID uint)
	NotifyRoomAccepted(ctx context.Context, roomID uint)
	NotifyServiceCompleted(ctx context.Context, roomID, serviceID uint)
}

type PresenceReader interface {
	RoomMembers(ctx context.Context, roomID uint) ([]uint, error)
}

type ImageStorage interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, map[string]string, error)
	FileURL(key string) string
}

// SendLimiter throttles chat sends per user.
type SendLimiter interface {
	AllowChat(ctx context.Context, userID uint) (bool, error)
}
