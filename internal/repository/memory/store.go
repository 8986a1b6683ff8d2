// Package memory provides in-process implementations of the repository
// interfaces. Tests use it in place of Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"market-chat/internal/domain/chat"
	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"
	"market-chat/internal/repository"
	market_errors "market-chat/pkg/errors"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	users    map[uint]user.User
	sessions map[uuid.UUID]user.UserSession
	services map[uint]service.Service
	rooms    map[uint]room.Room
	chats    map[uint]chat.Chat
	blocks   []user.UserBlock
	nextID   uint
	clock    time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uint]user.User),
		sessions: make(map[uuid.UUID]user.UserSession),
		services: make(map[uint]service.Service),
		rooms:    make(map[uint]room.Room),
		chats:    make(map[uint]chat.Chat),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Services() repository.ServiceRepository { return serviceRepo{s} }
func (s *Store) Rooms() repository.RoomRepository       { return roomRepo{s} }
func (s *Store) Chats() repository.ChatRepository       { return chatRepo{s} }

// tick hands out strictly increasing ids and timestamps. Callers hold mu.
func (s *Store) tick() (uint, time.Time) {
	s.nextID++
	s.clock = s.clock.Add(time.Second)
	return s.nextID, s.clock
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email || (u.Phone.Valid && existing.Phone == u.Phone) {
			return market_errors.ErrAlreadyExists
		}
	}
	u.ID, u.CreatedAt = r.s.tick()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) GetUserByID(ctx context.Context, id uint) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, market_errors.ErrNotFound
	}
	return u, nil
}

func (r userRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, market_errors.ErrNotFound
}

func (r userRepo) GetUserByPhone(ctx context.Context, phone string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Phone.Valid && u.Phone.String == phone {
			return u, nil
		}
	}
	return user.User{}, market_errors.ErrNotFound
}

func (r userRepo) UpdateUser(ctx context.Context, u user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[u.ID]
	if !ok {
		return market_errors.ErrNotFound
	}
	existing.Name = u.Name
	existing.AvatarURL = u.AvatarURL
	_, existing.UpdatedAt = r.s.tick()
	r.s.users[u.ID] = existing
	return nil
}

func (r userRepo) CreateSession(ctx context.Context, sess *user.UserSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	r.s.sessions[sess.ID] = *sess
	return nil
}

func (r userRepo) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (user.UserSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return user.UserSession{}, market_errors.ErrNotFound
	}
	return sess, nil
}

func (r userRepo) UpdateSession(ctx context.Context, sess user.UserSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[sess.ID]; !ok {
		return market_errors.ErrNotFound
	}
	r.s.sessions[sess.ID] = sess
	return nil
}

func (r userRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return market_errors.ErrNotFound
	}
	sess.IsRevoked = true
	r.s.sessions[sessionID] = sess
	return nil
}

func (r userRepo) CleanExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, sess := range r.s.sessions {
		if sess.IsRevoked || sess.ExpiresAt.Before(now) {
			delete(r.s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r userRepo) CreateBlock(ctx context.Context, b *user.UserBlock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.blocks {
		if existing.BlockerID == b.BlockerID && existing.BlockedID == b.BlockedID {
			return market_errors.ErrAlreadyExists
		}
	}
	b.ID, b.CreatedAt = r.s.tick()
	r.s.blocks = append(r.s.blocks, *b)
	return nil
}

func (r userRepo) IsBlocked(ctx context.Context, a, b uint) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, blk := range r.s.blocks {
		if (blk.BlockerID == a && blk.BlockedID == b) || (blk.BlockerID == b && blk.BlockedID == a) {
			return true, nil
		}
	}
	return false, nil
}

type serviceRepo struct{ s *Store }

func (r serviceRepo) Create(ctx context.Context, svc *service.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[svc.UserID]; !ok {
		return market_errors.ErrNotFound
	}
	svc.ID, svc.CreatedAt = r.s.tick()
	svc.UpdatedAt = svc.CreatedAt
	if svc.Status == "" {
		svc.Status = service.StatusOpen
	}
	r.s.services[svc.ID] = *svc
	return nil
}

func (r serviceRepo) GetByID(ctx context.Context, id uint) (service.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	svc, ok := r.s.services[id]
	if !ok {
		return service.Service{}, market_errors.ErrNotFound
	}
	svc.User = r.s.users[svc.UserID]
	return svc, nil
}

func (r serviceRepo) List(ctx context.Context, page, limit int) ([]service.Service, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	all := make([]service.Service, 0, len(r.s.services))
	for _, svc := range r.s.services {
		svc.User = r.s.users[svc.UserID]
		all = append(all, svc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	if page-1 >= len(all) {
		return []service.Service{}, total, nil
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []service.Service{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r serviceRepo) Update(ctx context.Context, svc service.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.services[svc.ID]
	if !ok {
		return market_errors.ErrNotFound
	}
	svc.UserID = existing.UserID
	svc.CreatedAt = existing.CreatedAt
	svc.User = user.User{}
	_, svc.UpdatedAt = r.s.tick()
	r.s.services[svc.ID] = svc
	return nil
}

func (r serviceRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.services[id]; !ok {
		return market_errors.ErrNotFound
	}
	for roomID, rm := range r.s.rooms {
		if rm.ServiceID == id {
			r.s.deleteRoomLocked(roomID)
		}
	}
	delete(r.s.services, id)
	return nil
}

type roomRepo struct{ s *Store }

func (r roomRepo) Create(ctx context.Context, rm *room.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.services[rm.ServiceID]; !ok {
		return market_errors.ErrNotFound
	}
	for _, existing := range r.s.rooms {
		if existing.ServiceID == rm.ServiceID && existing.ProviderID == rm.ProviderID {
			return market_errors.ErrAlreadyExists
		}
	}
	rm.ID, rm.CreatedAt = r.s.tick()
	rm.UpdatedAt = rm.CreatedAt
	if rm.Status == "" {
		rm.Status = room.StatusPending
	}
	r.s.rooms[rm.ID] = *rm
	return nil
}

func (r roomRepo) GetByID(ctx context.Context, id uint) (room.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rm, ok := r.s.rooms[id]
	if !ok {
		return room.Room{}, market_errors.ErrNotFound
	}
	return r.s.hydrateRoomLocked(rm), nil
}

func (r roomRepo) GetByServiceAndProvider(ctx context.Context, serviceID, providerID uint) (room.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rm := range r.s.rooms {
		if rm.ServiceID == serviceID && rm.ProviderID == providerID {
			return rm, nil
		}
	}
	return room.Room{}, market_errors.ErrNotFound
}

func (r roomRepo) GetUserRooms(ctx context.Context, userID uint) ([]room.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []room.Room
	for _, rm := range r.s.rooms {
		if rm.IsMember(userID) {
			out = append(out, r.s.hydrateRoomLocked(rm))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r roomRepo) GetServiceRooms(ctx context.Context, serviceID uint) ([]room.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []room.Room
	for _, rm := range r.s.rooms {
		if rm.ServiceID == serviceID {
			out = append(out, rm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r roomRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rm, ok := r.s.rooms[id]
	if !ok {
		return market_errors.ErrNotFound
	}
	rm.Status = status
	_, rm.UpdatedAt = r.s.tick()
	r.s.rooms[id] = rm
	return nil
}

func (r roomRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[id]; !ok {
		return market_errors.ErrNotFound
	}
	r.s.deleteRoomLocked(id)
	return nil
}

type chatRepo struct{ s *Store }

func (r chatRepo) Create(ctx context.Context, c *chat.Chat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[c.RoomID]; !ok {
		return market_errors.ErrNotFound
	}
	c.ID, c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.chats[c.ID] = *c
	return nil
}

func (r chatRepo) GetRoomChats(ctx context.Context, roomID uint, offset, limit int) ([]chat.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.s.roomChatsLocked(roomID)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []chat.Chat{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := make([]chat.Chat, 0, end-offset)
	for _, c := range all[offset:end] {
		c.User = r.s.users[c.UserID]
		page = append(page, c)
	}
	return page, nil
}

func (r chatRepo) GetLatestChat(ctx context.Context, roomID uint) (chat.Chat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.s.roomChatsLocked(roomID)
	if len(all) == 0 {
		return chat.Chat{}, market_errors.ErrNotFound
	}
	return all[0], nil
}

// roomChatsLocked returns the room's chats newest first.
func (s *Store) roomChatsLocked(roomID uint) []chat.Chat {
	var all []chat.Chat
	for _, c := range s.chats {
		if c.RoomID == roomID {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (s *Store) hydrateRoomLocked(rm room.Room) room.Room {
	rm.Service = s.services[rm.ServiceID]
	rm.Requester = s.users[rm.RequesterID]
	rm.Provider = s.users[rm.ProviderID]
	return rm
}

func (s *Store) deleteRoomLocked(id uint) {
	for chatID, c := range s.chats {
		if c.RoomID == id {
			delete(s.chats, chatID)
		}
	}
	delete(s.rooms, id)
}

// ChatCount reports how many chats are stored for a room.
func (s *Store) ChatCount(roomID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roomChatsLocked(roomID))
}
