package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher publishes each event to the redis channel named after its
// topic. Gateway processes subscribe to the channels of the users and orders
// they hold connections for.
type RedisDispatcher struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisDispatcher(client *redis.Client, log *slog.Logger) *RedisDispatcher {
	return &RedisDispatcher{client: client, log: log}
}

func (d *RedisDispatcher) Publish(ctx context.Context, topic Topic, event string, payload interface{}) {
	body, err := json.Marshal(Envelope{Event: event, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		d.log.Error("marshal event", "event", event, "err", err)
		return
	}
	if err := d.client.Publish(ctx, string(topic), body).Err(); err != nil {
		d.log.Error("redis publish failed", "topic", topic, "event", event, "err", err)
	}
}
