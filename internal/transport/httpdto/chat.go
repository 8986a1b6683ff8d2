package httpdto

import (
	"time"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
)

// OpenRoomRequest is used for POST /chats/room
type OpenRoomRequest struct {
	ServiceID uint `json:"service_id" binding:"required"`
}

// ExitRoomRequest is used for DELETE /chats/room
type ExitRoomRequest struct {
	RoomID uint `json:"room_id" binding:"required"`
}

// RoomActionRequest is used for POST /chats/room/{accept,decline,block}
type RoomActionRequest struct {
	RoomID uint `json:"room_id" binding:"required"`
}

// ChatHistoryRequest holds query parameters for GET /chats/:id.
// Page is zero based and Offset is the page size.
type ChatHistoryRequest struct {
	Page   int `form:"page"`
	Offset int `form:"offset"`
}

// ChatDTO is shared by the history endpoint and the onReceive socket event,
// so both feed the same client list.
type ChatDTO struct {
	ID        uint          `json:"id"`
	RoomID    uint          `json:"roomId"`
	User      SimpleUserDTO `json:"user"`
	Chat      string        `json:"chat"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ServiceBannerDTO is the service summary shown above a chat room.
type ServiceBannerDTO struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Method      string    `json:"method"`
	ServiceDate time.Time `json:"service_date"`
	Status      string    `json:"status"`
}

type RoomDTO struct {
	ID        uint             `json:"id"`
	ServiceID uint             `json:"service_id"`
	Service   ServiceBannerDTO `json:"service"`
	Requester SimpleUserDTO    `json:"requester"`
	Provider  SimpleUserDTO    `json:"provider"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type RoomSummaryDTO struct {
	RoomDTO
	LastChat *ChatDTO `json:"last_chat,omitempty"`
}

type RoomResponse struct {
	Room    RoomDTO `json:"room"`
	Created bool    `json:"created"`
}

type RoomsResponse struct {
	Rooms []RoomSummaryDTO `json:"rooms"`
}

type ChatHistoryResponse struct {
	Room   *RoomDTO  `json:"room,omitempty"`
	Chats  []ChatDTO `json:"chats"`
	IsMine bool      `json:"is_mine"`
	Page   int       `json:"page"`
	Offset int       `json:"offset"`
}

type PresenceResponse struct {
	RoomID  uint   `json:"room_id"`
	UserIDs []uint `json:"user_ids"`
}

func FromChat(c chat.Chat) ChatDTO {
	dto := ChatDTO{
		ID:        c.ID,
		RoomID:    c.RoomID,
		User:      FromSimpleUser(c.User),
		Chat:      c.Chat,
		CreatedAt: c.CreatedAt,
	}
	if dto.User.ID == 0 {
		dto.User.ID = c.UserID
	}
	return dto
}

func FromChatSlice(chats []chat.Chat) []ChatDTO {
	out := make([]ChatDTO, 0, len(chats))
	for _, c := range chats {
		out = append(out, FromChat(c))
	}
	return out
}

func FromRoom(r room.Room) RoomDTO {
	return RoomDTO{
		ID:        r.ID,
		ServiceID: r.ServiceID,
		Service: ServiceBannerDTO{
			ID:          r.Service.ID,
			Title:       r.Service.Title,
			Method:      string(r.Service.Method),
			ServiceDate: r.Service.ServiceDate,
			Status:      string(r.Service.Status),
		},
		Requester: FromSimpleUser(r.Requester),
		Provider:  FromSimpleUser(r.Provider),
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
