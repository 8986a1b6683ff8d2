package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Room presence is a set per room whose members are "<user_id>:<client_id>",
// so a user with two open tabs stays present until both leave.
const presenceKeyPrefix = "presence:room:"

type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func presenceKey(roomID uint) string {
	return fmt.Sprintf("%s%d", presenceKeyPrefix, roomID)
}

func presenceMember(userID uint, clientID string) string {
	return fmt.Sprintf("%d:%s", userID, clientID)
}

// Join records the connection as present in the room.
func (p *PresenceStore) Join(ctx context.Context, roomID, userID uint, clientID string) error {
	key := presenceKey(roomID)
	pipe := p.client.TxPipeline()
	pipe.SAdd(ctx, key, presenceMember(userID, clientID))
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) Leave(ctx context.Context, roomID, userID uint, clientID string) error {
	return p.client.SRem(ctx, presenceKey(roomID), presenceMember(userID, clientID)).Err()
}

// Clear drops every presence entry of a closed room.
func (p *PresenceStore) Clear(ctx context.Context, roomID uint) error {
	return p.client.Del(ctx, presenceKey(roomID)).Err()
}

// RoomMembers returns the distinct user ids present in the room, ascending.
func (p *PresenceStore) RoomMembers(ctx context.Context, roomID uint) ([]uint, error) {
	members, err := p.client.SMembers(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(members))
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		raw, _, _ := strings.Cut(m, ":")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := seen[uint(id)]; ok {
			continue
		}
		seen[uint(id)] = struct{}{}
		ids = append(ids, uint(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
