package services

import (
	"context"
	"testing"

	"market-chat/internal/domain/room"
	"market-chat/internal/domain/service"
	"market-chat/internal/repository/memory"
	market_errors "market-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPresence map[uint][]uint

func (p staticPresence) RoomMembers(ctx context.Context, roomID uint) ([]uint, error) {
	return p[roomID], nil
}

func TestOpenRoomIsIdempotentPerProvider(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	provider := seedUser(t, store, "Provider", "pro@example.com")
	svc := seedService(t, store, owner.ID)
	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	ctx := context.Background()

	rm, created, err := rooms.Open(ctx, provider.ID, svc.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, owner.ID, rm.RequesterID)
	assert.Equal(t, provider.ID, rm.ProviderID)
	assert.Equal(t, "Fix my sink", rm.Service.Title)
	assert.Equal(t, room.StatusPending, rm.Status)

	again, created, err := rooms.Open(ctx, provider.ID, svc.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rm.ID, again.ID)

	_, _, err = rooms.Open(ctx, owner.ID, svc.ID)
	assert.ErrorIs(t, err, market_errors.ErrSelfRoom)

	_, _, err = rooms.Open(ctx, provider.ID, 999)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
}

func TestOpenRoomOnCompletedService(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	provider := seedUser(t, store, "Provider", "pro@example.com")
	svc := seedService(t, store, owner.ID)
	svc.Status = service.StatusCompleted
	require.NoError(t, store.Services().Update(context.Background(), svc))

	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	_, _, err := rooms.Open(context.Background(), provider.ID, svc.ID)
	assert.ErrorIs(t, err, market_errors.ErrServiceClosed)
}

func TestExitRoom(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	provider := seedUser(t, store, "Provider", "pro@example.com")
	outsider := seedUser(t, store, "Outsider", "out@example.com")
	svc := seedService(t, store, owner.ID)
	notifier := newRecordingNotifier()
	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	rooms.SetNotifier(notifier)
	chats := NewChatService(store.Chats(), store.Rooms(), store.Users(), nil, 50)
	ctx := context.Background()

	rm, _, err := rooms.Open(ctx, provider.ID, svc.ID)
	require.NoError(t, err)
	_, err = chats.Send(ctx, owner.ID, rm.ID, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Exit(ctx, outsider.ID, rm.ID), market_errors.ErrForbidden)
	assert.ErrorIs(t, rooms.Exit(ctx, owner.ID, 4242), market_errors.ErrNotFound)

	require.NoError(t, rooms.Exit(ctx, owner.ID, rm.ID))
	assert.Equal(t, []uint{rm.ID}, notifier.closed)
	assert.Zero(t, store.ChatCount(rm.ID))

	_, err = rooms.Authorize(ctx, owner.ID, rm.ID)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)
}

func TestListRoomsWithLastChat(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	p1 := seedUser(t, store, "P1", "p1@example.com")
	p2 := seedUser(t, store, "P2", "p2@example.com")
	svc := seedService(t, store, owner.ID)
	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	chats := NewChatService(store.Chats(), store.Rooms(), store.Users(), nil, 50)
	ctx := context.Background()

	r1, _, err := rooms.Open(ctx, p1.ID, svc.ID)
	require.NoError(t, err)
	_, _, err = rooms.Open(ctx, p2.ID, svc.ID)
	require.NoError(t, err)
	_, err = chats.Send(ctx, p1.ID, r1.ID, "first")
	require.NoError(t, err)
	_, err = chats.Send(ctx, owner.ID, r1.ID, "latest")
	require.NoError(t, err)

	ownerRooms, err := rooms.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, ownerRooms, 2)

	p1Rooms, err := rooms.List(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, p1Rooms, 1)
	require.NotNil(t, p1Rooms[0].LastChat)
	assert.Equal(t, "latest", p1Rooms[0].LastChat.Chat)

	p2Rooms, err := rooms.List(ctx, p2.ID)
	require.NoError(t, err)
	require.Len(t, p2Rooms, 1)
	assert.Nil(t, p2Rooms[0].LastChat)
}

func TestPresenceMembersOnly(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	provider := seedUser(t, store, "Provider", "pro@example.com")
	outsider := seedUser(t, store, "Outsider", "out@example.com")
	svc := seedService(t, store, owner.ID)
	ctx := context.Background()

	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	rm, _, err := rooms.Open(ctx, provider.ID, svc.ID)
	require.NoError(t, err)

	ids, err := rooms.Presence(ctx, owner.ID, rm.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	rooms = NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), staticPresence{rm.ID: {provider.ID}})
	ids, err = rooms.Presence(ctx, owner.ID, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{provider.ID}, ids)

	_, err = rooms.Presence(ctx, outsider.ID, rm.ID)
	assert.ErrorIs(t, err, market_errors.ErrForbidden)
}

func TestAcceptAndDeclineRoom(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	p1 := seedUser(t, store, "P1", "p1@example.com")
	p2 := seedUser(t, store, "P2", "p2@example.com")
	svc := seedService(t, store, owner.ID)
	notifier := newRecordingNotifier()
	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	rooms.SetNotifier(notifier)
	ctx := context.Background()

	r1, _, err := rooms.Open(ctx, p1.ID, svc.ID)
	require.NoError(t, err)
	r2, _, err := rooms.Open(ctx, p2.ID, svc.ID)
	require.NoError(t, err)

	_, err = rooms.Accept(ctx, p1.ID, r1.ID)
	assert.ErrorIs(t, err, market_errors.ErrNotRequester)
	_, err = rooms.Accept(ctx, p2.ID, r1.ID)
	assert.ErrorIs(t, err, market_errors.ErrNotRoomMember)

	accepted, err := rooms.Accept(ctx, owner.ID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusAccepted, accepted.Status)
	assert.Equal(t, []uint{r1.ID}, notifier.accepted)

	stored, err := rooms.Authorize(ctx, p1.ID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusAccepted, stored.Status)

	_, err = rooms.Accept(ctx, owner.ID, r1.ID)
	assert.ErrorIs(t, err, market_errors.ErrRoomAnswered)
	assert.ErrorIs(t, rooms.Decline(ctx, owner.ID, r1.ID), market_errors.ErrConflict)

	assert.ErrorIs(t, rooms.Decline(ctx, p2.ID, r2.ID), market_errors.ErrForbidden)
	require.NoError(t, rooms.Decline(ctx, owner.ID, r2.ID))
	assert.Equal(t, []uint{r2.ID}, notifier.closed)
	_, err = rooms.Authorize(ctx, owner.ID, r2.ID)
	assert.ErrorIs(t, err, market_errors.ErrNotFound)

	// A declined provider may ask again.
	again, created, err := rooms.Open(ctx, p2.ID, svc.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, room.StatusPending, again.Status)
}

func TestBlockClosesSharedRoomsAndRefusesOpen(t *testing.T) {
	store := memory.NewStore()
	owner := seedUser(t, store, "Owner", "owner@example.com")
	provider := seedUser(t, store, "Provider", "pro@example.com")
	other := seedUser(t, store, "Other", "other@example.com")
	first := seedService(t, store, owner.ID)
	second := seedService(t, store, owner.ID)
	notifier := newRecordingNotifier()
	rooms := NewRoomService(store.Rooms(), store.Services(), store.Chats(), store.Users(), nil)
	rooms.SetNotifier(notifier)
	ctx := context.Background()

	r1, _, err := rooms.Open(ctx, provider.ID, first.ID)
	require.NoError(t, err)
	r2, _, err := rooms.Open(ctx, provider.ID, second.ID)
	require.NoError(t, err)
	kept, _, err := rooms.Open(ctx, other.ID, first.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, rooms.Block(ctx, other.ID, r1.ID), market_errors.ErrNotRoomMember)

	require.NoError(t, rooms.Block(ctx, provider.ID, r1.ID))
	assert.ElementsMatch(t, []uint{r1.ID, r2.ID}, notifier.closed)

	left, err := rooms.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].Room.ID)

	// The block holds in both directions.
	_, _, err = rooms.Open(ctx, provider.ID, first.ID)
	assert.ErrorIs(t, err, market_errors.ErrUserBlocked)
	third := seedService(t, store, provider.ID)
	_, _, err = rooms.Open(ctx, owner.ID, third.ID)
	assert.ErrorIs(t, err, market_errors.ErrForbidden)

	blocked, err := store.Users().IsBlocked(ctx, owner.ID, provider.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}
