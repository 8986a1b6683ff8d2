package repository

import (
	"context"
	"time"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uint) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByPhone(ctx context.Context, phone string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) error

	CreateSession(ctx context.Context, s *user.UserSession) error
	GetSessionByID(ctx context.Context, sessionID uuid.UUID) (user.UserSession, error)
	UpdateSession(ctx context.Context, s user.UserSession) error
	RevokeSession(ctx context.Context, sessionID uuid.UUID) error
	CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	CreateBlock(ctx context.Context, b *user.UserBlock) error
	// IsBlocked reports whether either user has blocked the other.
	IsBlocked(ctx context.Context, a, b uint) (bool, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s *service.Service) error
	GetByID(ctx context.Context, id uint) (service.Service, error)
	List(ctx context.Context, page, limit int) ([]service.Service, int64, error)
	Update(ctx context.Context, s service.Service) error
	Delete(ctx context.Context, id uint) error
}

type RoomRepository interface {
	Create(ctx context.Context, r *room.Room) error
	GetByID(ctx context.Context, id uint) (room.Room, error)
	GetByServiceAndProvider(ctx context.Context, serviceID, providerID uint) (room.Room, error)
	GetUserRooms(ctx context.Context, userID uint) ([]room.Room, error)
	GetServiceRooms(ctx context.Context, serviceID uint) ([]room.Room, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
}

type ChatRepository interface {
	Create(ctx context.Context, c *chat.Chat) error
	// GetRoomChats returns chats newest first, skipping offset rows.
	GetRoomChats(ctx context.Context, roomID uint, offset, limit int) ([]chat.Chat, error)
	GetLatestChat(ctx context.Context, roomID uint) (chat.Chat, error)
}
