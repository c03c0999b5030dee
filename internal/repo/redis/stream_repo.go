package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// StreamRepo fans appended messages out to live chat subscribers via
// pub/sub, one topic per channel. Delivery is at-most-once; the
// subscriber's timeline dedups against the fetched pages, so a replay
// or a miss never corrupts display order.
type StreamRepo struct {
	client *goredis.Client
}

func NewStreamRepo(client *goredis.Client) *StreamRepo {
	return &StreamRepo{client: client}
}

func streamKey(channelID string) string {
	return "chat:stream:" + channelID
}

func (r *StreamRepo) Publish(ctx context.Context, channelID string, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(channelID) == "" || len(payload) == 0 {
		return fmt.Errorf("invalid stream payload")
	}

	if err := r.client.Publish(ctx, streamKey(channelID), payload).Err(); err != nil {
		return fmt.Errorf("publish stream message: %w", err)
	}

	return nil
}

type Subscription struct {
	pubsub *goredis.PubSub
	out    chan []byte
}

// Subscribe opens the live tail for a channel. The subscription is
// confirmed before Subscribe returns, so a caller that subscribes
// before fetching its initial page cannot miss a message in between.
func (r *StreamRepo) Subscribe(ctx context.Context, channelID string) (*Subscription, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(channelID) == "" {
		return nil, fmt.Errorf("channel id is required")
	}

	pubsub := r.client.Subscribe(ctx, streamKey(channelID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("confirm stream subscription: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
	}

	go func() {
		defer close(sub.out)
		for msg := range pubsub.Channel() {
			select {
			case sub.out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (s *Subscription) Messages() <-chan []byte {
	return s.out
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
