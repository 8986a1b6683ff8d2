package services

import (
	"context"
	"errors"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"

	"go.uber.org/zap"
)

type RoomService struct {
	roomRepo    repository.RoomRepository
	serviceRepo repository.ServiceRepository
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	notifier    RoomNotifier
	presence    PresenceReader
}

// RoomSummary is a room as shown on the chats index.
type RoomSummary struct {
	Room     room.Room
	LastChat *chat.Chat
}

func NewRoomService(roomRepo repository.RoomRepository, serviceRepo repository.ServiceRepository, chatRepo repository.ChatRepository, userRepo repository.UserRepository, presence PresenceReader) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		serviceRepo: serviceRepo,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		presence:    presence,
	}
}

func (s *RoomService) SetNotifier(n RoomNotifier) {
	s.notifier = n
}

// Open returns the caller's room on a service, creating it on first contact.
// The caller becomes the provider and the service owner the requester.
func (s *RoomService) Open(ctx context.Context, actorID, serviceID uint) (room.Room, bool, error) {
	if actorID == 0 {
		return room.Room{}, false, market_errors.ErrUnauthorized
	}
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return room.Room{}, false, err
	}
	if svc.IsOwner(actorID) {
		return room.Room{}, false, market_errors.ErrSelfRoom
	}
	blocked, err := s.userRepo.IsBlocked(ctx, actorID, svc.UserID)
	if err != nil {
		return room.Room{}, false, err
	}
	if blocked {
		return room.Room{}, false, market_errors.ErrUserBlocked
	}

	existing, err := s.roomRepo.GetByServiceAndProvider(ctx, serviceID, actorID)
	if err == nil {
		full, err := s.roomRepo.GetByID(ctx, existing.ID)
		return full, false, err
	}
	if !isNotFound(err) {
		return room.Room{}, false, err
	}

	if svc.Status == service.StatusCompleted {
		return room.Room{}, false, market_errors.ErrServiceClosed
	}

	created := &room.Room{
		ServiceID:   serviceID,
		RequesterID: svc.UserID,
		ProviderID:  actorID,
		Status:      room.StatusPending,
	}
	if err := s.roomRepo.Create(ctx, created); err != nil {
		// A concurrent open for the same pair already won.
		if errors.Is(err, market_errors.ErrAlreadyExists) {
			existing, err := s.roomRepo.GetByServiceAndProvider(ctx, serviceID, actorID)
			if err != nil {
				return room.Room{}, false, err
			}
			full, err := s.roomRepo.GetByID(ctx, existing.ID)
			return full, false, err
		}
		return room.Room{}, false, err
	}

	full, err := s.roomRepo.GetByID(ctx, created.ID)
	return full, true, err
}

func (s *RoomService) List(ctx context.Context, actorID uint) ([]RoomSummary, error) {
	rooms, err := s.roomRepo.GetUserRooms(ctx, actorID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, rm := range rooms {
		summary := RoomSummary{Room: rm}
		last, err := s.chatRepo.GetLatestChat(ctx, rm.ID)
		switch {
		case err == nil:
			summary.LastChat = &last
		case !isNotFound(err):
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Authorize loads the room and checks that actorID is one of its members.
func (s *RoomService) Authorize(ctx context.Context, actorID, roomID uint) (room.Room, error) {
	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if !rm.IsMember(actorID) {
		return room.Room{}, market_errors.ErrNotRoomMember
	}
	return rm, nil
}

// Exit deletes the room and its chats. Only members may exit.
func (s *RoomService) Exit(ctx context.Context, actorID, roomID uint) error {
	if _, err := s.Authorize(ctx, actorID, roomID); err != nil {
		return err
	}
	if err := s.closeRoom(ctx, roomID); err != nil {
		return err
	}
	zap.L().Info("room closed", zap.Uint("room_id", roomID), zap.Uint("user_id", actorID))
	return nil
}

// Accept marks the provider of a pending room as accepted. Only the
// requester answers a room.
func (s *RoomService) Accept(ctx context.Context, actorID, roomID uint) (room.Room, error) {
	rm, err := s.pendingRoomFor(ctx, actorID, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if err := s.roomRepo.UpdateStatus(ctx, roomID, room.StatusAccepted); err != nil {
		return room.Room{}, err
	}
	if s.notifier != nil {
		s.notifier.NotifyRoomAccepted(ctx, roomID)
	}
	rm.Status = room.StatusAccepted
	zap.L().Info("room accepted", zap.Uint("room_id", roomID), zap.Uint("user_id", actorID))
	return rm, nil
}

// Decline turns the provider of a pending room away and closes the room.
func (s *RoomService) Decline(ctx context.Context, actorID, roomID uint) error {
	if _, err := s.pendingRoomFor(ctx, actorID, roomID); err != nil {
		return err
	}
	if err := s.closeRoom(ctx, roomID); err != nil {
		return err
	}
	zap.L().Info("room declined", zap.Uint("room_id", roomID), zap.Uint("user_id", actorID))
	return nil
}

// Block stops the counterpart of the room from contacting actorID again.
// Every room the two share is closed and Open refuses the pair afterwards.
func (s *RoomService) Block(ctx context.Context, actorID, roomID uint) error {
	rm, err := s.Authorize(ctx, actorID, roomID)
	if err != nil {
		return err
	}
	blockedID := rm.Counterpart(actorID)

	err = s.userRepo.CreateBlock(ctx, &user.UserBlock{BlockerID: actorID, BlockedID: blockedID})
	if err != nil && !errors.Is(err, market_errors.ErrAlreadyExists) {
		return err
	}

	shared, err := s.roomRepo.GetUserRooms(ctx, actorID)
	if err != nil {
		return err
	}
	for _, r := range shared {
		if !r.IsMember(blockedID) {
			continue
		}
		if err := s.closeRoom(ctx, r.ID); err != nil && !isNotFound(err) {
			return err
		}
	}
	zap.L().Info("user blocked", zap.Uint("user_id", actorID), zap.Uint("blocked_id", blockedID), zap.Uint("room_id", roomID))
	return nil
}

func (s *RoomService) pendingRoomFor(ctx context.Context, actorID, roomID uint) (room.Room, error) {
	rm, err := s.Authorize(ctx, actorID, roomID)
	if err != nil {
		return room.Room{}, err
	}
	if rm.RequesterID != actorID {
		return room.Room{}, market_errors.ErrNotRequester
	}
	if rm.Status == room.StatusAccepted {
		return room.Room{}, market_errors.ErrRoomAnswered
	}
	return rm, nil
}

func (s *RoomService) closeRoom(ctx context.Context, roomID uint) error {
	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.NotifyRoomClosed(ctx, roomID)
	}
	return nil
}

// Presence lists the members currently connected to the room.
func (s *RoomService) Presence(ctx context.Context, actorID, roomID uint) ([]uint, error) {
	if _, err := s.Authorize(ctx, actorID, roomID); err != nil {
		return nil, err
	}
	if s.presence == nil {
		return []uint{}, nil
	}
	ids, err := s.presence.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

func hasProvider(rooms []room.Room, userID uint) bool {
	if userID == 0 {
		return false
	}
	for _, rm := range rooms {
		if rm.ProviderID == userID {
			return true
		}
	}
	return false
}
