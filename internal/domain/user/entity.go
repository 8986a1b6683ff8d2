package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table
type User struct {
	ID           uint           `gorm:"primaryKey"`
	Name         string         `gorm:"size:80;not null"`
	Email        string         `gorm:"size:255;uniqueIndex;not null"`
	Phone        sql.NullString `gorm:"size:32;uniqueIndex"`
	PasswordHash string         `gorm:"not null" json:"-"`
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Sessions []UserSession `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// UserSession represents the user_sessions table
type UserSession struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uint      `gorm:"index;not null"`
	RefreshTokenHash string    `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"index"`
	IsRevoked        bool
	CreatedAt        time.Time
}

// UserBlock represents the user_blocks table. Blocking is one directional in
// storage but keeps both users apart.
type UserBlock struct {
	ID        uint `gorm:"primaryKey"`
	BlockerID uint `gorm:"not null;uniqueIndex:idx_user_blocks_pair"`
	BlockedID uint `gorm:"not null;index;uniqueIndex:idx_user_blocks_pair"`
	CreatedAt time.Time
}

// SimpleUser is the author shape embedded in chats and rooms.
type SimpleUser struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u User) Simple() SimpleUser {
	return SimpleUser{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

func (User) TableName() string {
	return "users"
}

func (UserSession) TableName() string {
	return "user_sessions"
}

func (UserBlock) TableName() string {
	return "user_blocks"
}
