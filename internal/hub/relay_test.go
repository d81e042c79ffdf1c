package hub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRelay_UnreachableRedis(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	relay := NewRedisRelay(client, newTestHub(4), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.Error(t, relay.Publish(ctx, 1, countEvent(1)))

	err := relay.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay: subscribe "+DefaultRelayChannel)
}

// Needs a live server: REDIS_ADDR=localhost:6379 go test ./internal/hub/
func TestRelay_PublishReachesSubscriberThroughRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	h := newTestHub(4)
	sub := h.Subscribe(3)
	other := h.Subscribe(4)
	relay := NewRedisRelay(client, h, zap.NewNop())
	relay.channel = DefaultRelayChannel + ":test:" + uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, relay.channel).Result()
		return err == nil && n[relay.channel] > 0
	}, 5*time.Second, 20*time.Millisecond, "relay never subscribed")

	require.NoError(t, relay.Publish(ctx, 3, countEvent(7)))
	select {
	case raw := <-sub.Messages():
		typ, count := decode(t, raw)
		assert.Equal(t, EventPendingCountChanged, typ)
		assert.EqualValues(t, 7, count)
	case <-time.After(5 * time.Second):
		t.Fatal("relayed event never arrived")
	}
	assert.Len(t, other.Messages(), 0)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
