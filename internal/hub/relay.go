package hub

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the Redis channel all instances share.
const DefaultRelayChannel = "friends:events"

type envelope struct {
	UserID uint            `json:"user_id"`
	Event  json.RawMessage `json:"event"`
}

// RedisRelay fans events out across server instances. Publish sends the event
// to Redis; Run receives every relayed event and pushes it to the local hub,
// so a user connected to any instance gets it.
type RedisRelay struct {
	client  *goredis.Client
	hub     *Hub
	channel string
	logger  *zap.Logger
}

func NewRedisRelay(client *goredis.Client, hub *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, hub: hub, channel: DefaultRelayChannel, logger: logger}
}

// Publish implements the aggregator's publisher over Redis.
func (r *RedisRelay) Publish(ctx context.Context, userID uint, event Event) error {
	payload, err := encodeEnvelope(userID, event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run forwards relayed events to the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("relay: subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.UserID == 0 {
		r.logger.Warn("relay: malformed message", zap.Error(err))
		return
	}
	r.hub.PushRaw(env.UserID, env.Event)
}

func encodeEnvelope(userID uint, event Event) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{UserID: userID, Event: raw})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
