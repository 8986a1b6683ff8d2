package chat

import (
	"time"

	"market-chat/internal/domain/user"
)

// MaxLength bounds a single chat body in runes.
const MaxLength = 1000

// Chat represents the chats table: one message inside a room.
type Chat struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"not null;index:idx_chats_room_created,priority:1"`
	UserID    uint      `gorm:"not null;index"`
	Chat      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_chats_room_created,priority:2"`
	UpdatedAt time.Time

	User user.User `gorm:"constraint:OnDelete:CASCADE"`
}

func (Chat) TableName() string {
	return "chats"
}
