package services

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"
)

// MaxPageSize bounds the offset query parameter of the history endpoint.
const MaxPageSize = 100

type ChatService struct {
	chatRepo    repository.ChatRepository
	roomRepo    repository.RoomRepository
	userRepo    repository.UserRepository
	limiter     SendLimiter
	defaultSize int
}

// ChatHistory is one page of a room's chats. Room and Chats are empty when
// the caller is not a member.
type ChatHistory struct {
	Room   *room.Room
	Chats  []chat.Chat
	IsMine bool
	Page   int
	Size   int
}

func NewChatService(chatRepo repository.ChatRepository, roomRepo repository.RoomRepository, userRepo repository.UserRepository, limiter SendLimiter, defaultSize int) *ChatService {
	if defaultSize <= 0 || defaultSize > MaxPageSize {
		defaultSize = 50
	}
	return &ChatService{
		chatRepo:    chatRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		limiter:     limiter,
		defaultSize: defaultSize,
	}
}

// History returns page number page (zero based) of size chats, newest pages
// first, each page ordered oldest to newest.
func (s *ChatService) History(ctx context.Context, actorID, roomID uint, page, size int) (ChatHistory, error) {
	page, size = s.clampPage(page, size)

	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return ChatHistory{}, err
	}
	history := ChatHistory{Page: page, Size: size, Chats: []chat.Chat{}}
	if !rm.IsMember(actorID) {
		return history, nil
	}

	history.Room = &rm
	history.IsMine = true

	// No room holds that many chats, and page*size would overflow.
	if page > math.MaxInt/size {
		return history, nil
	}

	chats, err := s.chatRepo.GetRoomChats(ctx, roomID, page*size, size)
	if err != nil {
		return ChatHistory{}, err
	}
	reverseChats(chats)

	if chats != nil {
		history.Chats = chats
	}
	return history, nil
}

// Send validates and stores a chat authored by actorID. The returned chat
// carries its author.
func (s *ChatService) Send(ctx context.Context, actorID, roomID uint, text string) (chat.Chat, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Chat{}, market_errors.ErrEmptyChat
	}
	if utf8.RuneCountInString(text) > chat.MaxLength {
		return chat.Chat{}, market_errors.ErrChatTooLong
	}

	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return chat.Chat{}, err
	}
	if !rm.IsMember(actorID) {
		return chat.Chat{}, market_errors.ErrNotRoomMember
	}

	if s.limiter != nil {
		allowed, err := s.limiter.AllowChat(ctx, actorID)
		if err != nil {
			return chat.Chat{}, err
		}
		if !allowed {
			return chat.Chat{}, market_errors.ErrRateLimited
		}
	}

	created := &chat.Chat{
		RoomID: roomID,
		UserID: actorID,
		Chat:   text,
	}
	if err := s.chatRepo.Create(ctx, created); err != nil {
		return chat.Chat{}, err
	}

	author, err := s.userRepo.GetUserByID(ctx, actorID)
	if err != nil {
		return chat.Chat{}, err
	}
	created.User = author
	return *created, nil
}

func (s *ChatService) clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func reverseChats(chats []chat.Chat) {
	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
}
