package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6f1c1a52-8f0e-4b5e-9d5a-0b7b3f1d2c11")
	assert.Equal(t, "freight:notifications:6f1c1a52-8f0e-4b5e-9d5a-0b7b3f1d2c11", Channel(id))
}

func TestRedisRelay_ForwardRoutesByChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	userID := uuid.New()
	c := &client{userID: userID, send: make(chan []byte, 1)}
	hub.register(c)

	relay := NewRedisRelay(nil, hub, zap.NewNop())
	relay.forward(Channel(userID), `{"type":"bid.new"}`)
	relay.forward("freight:notifications:not-a-uuid", `{}`)

	select {
	case msg := <-c.send:
		assert.JSONEq(t, `{"type":"bid.new"}`, string(msg))
	default:
		t.Fatal("expected the relayed payload on the user's connection")
	}
	assert.Empty(t, c.send)
}

func TestRedisPublisher_ReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	err := NewRedisPublisher(client).Deliver(context.Background(), uuid.New(), Notification{Type: TypeNewBid})
	assert.ErrorContains(t, err, "publish notification")
}
