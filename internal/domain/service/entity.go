package service

import (
	"time"

	"market-chat/internal/domain/user"
)

// Method is how the requested work is delivered.
type Method string

const (
	MethodRemote Method = "REMOTE"
	MethodVisit  Method = "VISIT"
)

func (m Method) Valid() bool {
	return m == MethodRemote || m == MethodVisit
}

// Status of a marketplace request.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
)

// Service represents the services table: a marketplace request record.
type Service struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	Title       string `gorm:"size:120;not null"`
	Description string `gorm:"type:text"`
	Method      Method `gorm:"size:16;not null"`
	ServiceDate time.Time
	Status      Status `gorm:"size:16;not null;default:OPEN"`
	ImageKey    string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User user.User `gorm:"constraint:OnDelete:CASCADE"`
}

func (Service) TableName() string {
	return "services"
}

func (s Service) IsOwner(userID uint) bool {
	return s.UserID == userID
}
