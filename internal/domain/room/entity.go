package room

import (
	"time"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"
)

// A room starts pending until the requester accepts the provider.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
)

// Room represents the rooms table. A room ties the requester who posted a
// service to one provider answering it.
type Room struct {
	ID          uint   `gorm:"primaryKey"`
	ServiceID   uint   `gorm:"not null;uniqueIndex:idx_rooms_service_provider"`
	RequesterID uint   `gorm:"not null;index"`
	ProviderID  uint   `gorm:"not null;index;uniqueIndex:idx_rooms_service_provider"`
	Status      string `gorm:"size:16;not null;default:PENDING"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Service   service.Service `gorm:"constraint:OnDelete:CASCADE"`
	Requester user.User       `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE"`
	Provider  user.User       `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE"`
	Chats     []chat.Chat     `gorm:"constraint:OnDelete:CASCADE"`
}

func (Room) TableName() string {
	return "rooms"
}

// Counterpart returns the other member of the room, or 0 when userID is not a member.
func (r Room) Counterpart(userID uint) uint {
	switch {
	case !r.IsMember(userID):
		return 0
	case r.RequesterID == userID:
		return r.ProviderID
	default:
		return r.RequesterID
	}
}

// IsMember reports whether userID is the requester or the provider.
func (r Room) IsMember(userID uint) bool {
	return userID != 0 && (r.RequesterID == userID || r.ProviderID == userID)
}
