package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// ErrSubscriptionClosed is returned when the message channel closes while
// the context is still live.
var ErrSubscriptionClosed = errors.New("redis subscription closed")

// Subscribe pattern-subscribes and calls handler for every message until ctx
// is cancelled, which returns nil. ready, when set, runs once the server has
// confirmed the subscription.
func (s *Subscriber) Subscribe(ctx context.Context, patterns []string, ready func(), handler func(channel string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, patterns...)
	defer sub.Close()

	// Wait for the subscription confirmation so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return err
	}
	if ready != nil {
		ready()
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			handler(msg.Channel, []byte(msg.Payload))
		}
	}
}
