package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelPrefix is followed by the user id: freight:notifications:<user>
const ChannelPrefix = "freight:notifications:"

// Channel returns the pub/sub channel of userID
func Channel(userID uuid.UUID) string {
	return ChannelPrefix + userID.String()
}

// RedisPublisher is the Sink used when several API instances run. Each
// instance relays the channel into its own Hub, so a user is reached on
// whichever instance holds their websocket.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Deliver implements Sink
func (p *RedisPublisher) Deliver(ctx context.Context, userID uuid.UUID, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// RedisRelay forwards every user channel into the local Hub
type RedisRelay struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

// NewRedisRelay creates a RedisRelay
func NewRedisRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, logger: logger.Named("notification_relay")}
}

// Run subscribes to freight:notifications:* and blocks until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to notifications: %w", err)
	}
	r.logger.Info("Relaying notifications from Redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Channel, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(channel, payload string) {
	userID, err := uuid.Parse(strings.TrimPrefix(channel, ChannelPrefix))
	if err != nil {
		r.logger.Warn("Ignoring message on malformed channel", zap.String("channel", channel))
		return
	}
	r.hub.Send(userID, []byte(payload))
}
