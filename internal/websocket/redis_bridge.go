package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"market-chat/internal/redis"

	"go.uber.org/zap"
)

// relayFrame is what travels over Redis between instances.
type relayFrame struct {
	Origin    string          `json:"origin,omitempty"`
	CloseRoom bool            `json:"close_room,omitempty"`
	Frame     json.RawMessage `json:"frame"`
}

// ErrBridgeNotSubscribed means the frame was published but this instance is
// not receiving relayed frames, so the hub must deliver it locally.
var ErrBridgeNotSubscribed = errors.New("redis bridge not subscribed")

// RedisBridge fans room frames out through Redis pub/sub so every instance
// delivers to its own connections.
type RedisBridge struct {
	publisher  *redis.Publisher
	subscriber *redis.Subscriber
	hub        *Hub
	subscribed atomic.Bool

	retryMin time.Duration
	retryMax time.Duration
}

func NewRedisBridge(publisher *redis.Publisher, subscriber *redis.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{
		publisher:  publisher,
		subscriber: subscriber,
		hub:        hub,
		retryMin:   500 * time.Millisecond,
		retryMax:   30 * time.Second,
	}
}

// Subscribed reports whether relayed frames currently reach this instance.
func (b *RedisBridge) Subscribed() bool {
	return b.subscribed.Load()
}

func (b *RedisBridge) Broadcast(ctx context.Context, roomID uint, frame []byte, originID string, closeRoom bool) error {
	payload, err := json.Marshal(relayFrame{Origin: originID, CloseRoom: closeRoom, Frame: frame})
	if err != nil {
		return err
	}
	if err := b.publisher.PublishRoom(ctx, roomID, payload); err != nil {
		return err
	}
	if !b.subscribed.Load() {
		return ErrBridgeNotSubscribed
	}
	return nil
}

// Serve keeps the bridge subscribed until ctx is cancelled, retrying with
// exponential backoff whenever the subscription fails.
func (b *RedisBridge) Serve(ctx context.Context) {
	backoff := b.retryMin
	for {
		started := time.Now()
		err := b.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > b.retryMax {
			backoff = b.retryMin
		}
		b.hub.logger.Warn("redis bridge stopped, retrying", 0, "", zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.retryMax {
			backoff = b.retryMax
		}
	}
}

// Run delivers relayed frames until ctx is cancelled or the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	defer b.subscribed.Store(false)
	ready := func() { b.subscribed.Store(true) }
	return b.subscriber.Subscribe(ctx, []string{redis.RoomChannelPattern}, ready, func(channel string, payload []byte) {
		roomID, ok := roomFromChannel(channel)
		if !ok {
			return
		}
		var msg relayFrame
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.hub.logger.Warn("bad relay frame", 0, "", zap.String("channel", channel), zap.Error(err))
			return
		}
		b.hub.Deliver(roomID, msg.Frame, msg.Origin, msg.CloseRoom)
	})
}

func roomFromChannel(channel string) (uint, bool) {
	idStr := strings.TrimPrefix(channel, strings.TrimSuffix(redis.RoomChannelPattern, "*"))
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
