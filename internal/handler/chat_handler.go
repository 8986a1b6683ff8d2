package handler

import (
	"net/http"

	"market-chat/internal/services"
	"market-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves rooms and chat history over REST. Live delivery goes
// through the websocket package.
type ChatHandler struct {
	rooms *services.RoomService
	chats *services.ChatService
}

func NewChatHandler(rooms *services.RoomService, chats *services.ChatService) *ChatHandler {
	return &ChatHandler{rooms: rooms, chats: chats}
}

// OpenRoom starts (or resumes) the caller's conversation about a service.
func (h *ChatHandler) OpenRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req httpdto.OpenRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	rm, created, err := h.rooms.Open(c.Request.Context(), userID, req.ServiceID)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.RoomResponse{Room: httpdto.FromRoom(rm), Created: created}))
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	summaries, err := h.rooms.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]httpdto.RoomSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		dto := httpdto.RoomSummaryDTO{RoomDTO: httpdto.FromRoom(s.Room)}
		if s.LastChat != nil {
			last := httpdto.FromChat(*s.LastChat)
			dto.LastChat = &last
		}
		out = append(out, dto)
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RoomsResponse{Rooms: out}))
}

// History returns one page of a room's chats for infinite scroll.
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req httpdto.ChatHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c)
		return
	}

	history, err := h.chats.History(c.Request.Context(), userID, roomID, req.Page, req.Offset)
	if err != nil {
		writeError(c, err)
		return
	}

	res := httpdto.ChatHistoryResponse{
		Chats:  httpdto.FromChatSlice(history.Chats),
		IsMine: history.IsMine,
		Page:   history.Page,
		Offset: history.Size,
	}
	if history.Room != nil {
		dto := httpdto.FromRoom(*history.Room)
		res.Room = &dto
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

func (h *ChatHandler) ExitRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req httpdto.ExitRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	if err := h.rooms.Exit(c.Request.Context(), userID, req.RoomID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessageResponse{Message: "left the chat room"}))
}

// AcceptRoom lets the requester take on the room's provider.
func (h *ChatHandler) AcceptRoom(c *gin.Context) {
	userID, roomID, ok := roomAction(c)
	if !ok {
		return
	}

	rm, err := h.rooms.Accept(c.Request.Context(), userID, roomID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RoomResponse{Room: httpdto.FromRoom(rm)}))
}

func (h *ChatHandler) DeclineRoom(c *gin.Context) {
	userID, roomID, ok := roomAction(c)
	if !ok {
		return
	}

	if err := h.rooms.Decline(c.Request.Context(), userID, roomID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessageResponse{Message: "room declined"}))
}

// BlockUser blocks the other member of the room and closes their rooms.
func (h *ChatHandler) BlockUser(c *gin.Context) {
	userID, roomID, ok := roomAction(c)
	if !ok {
		return
	}

	if err := h.rooms.Block(c.Request.Context(), userID, roomID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessageResponse{Message: "user blocked"}))
}

func roomAction(c *gin.Context) (uint, uint, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}

	var req httpdto.RoomActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return 0, 0, false
	}
	return userID, req.RoomID, true
}

func (h *ChatHandler) Presence(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ids, err := h.rooms.Presence(c.Request.Context(), userID, roomID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresenceResponse{RoomID: roomID, UserIDs: ids}))
}
