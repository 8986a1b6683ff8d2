package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RoomChannelPattern matches every room broadcast channel.
const RoomChannelPattern = "channel:room:*"

func RoomChannel(roomID uint) string {
	return fmt.Sprintf("channel:room:%d", roomID)
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

func (p *Publisher) PublishRoom(ctx context.Context, roomID uint, payload []byte) error {
	return p.Publish(ctx, RoomChannel(roomID), payload)
}
