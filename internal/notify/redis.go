package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hamed0406/healthalert/internal/domain"
)

// DefaultRedisChannel is used when no channel is configured.
const DefaultRedisChannel = "healthalert.events"

// Publisher is the part of a go-redis client the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes every event as JSON on a pub/sub channel.
type Redis struct {
	Client  Publisher
	Channel string
}

// Envelope is the message published to Redis and the websocket stream.
type Envelope struct {
	Name  string       `json:"name"`
	Event domain.Event `json:"event"`
}

func NewRedis(client Publisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{Client: client, Channel: channel}
}

// DialRedis connects and pings before returning the client.
func DialRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (r *Redis) Notify(ctx context.Context, eventName string, ev domain.Event) error {
	data, err := json.Marshal(Envelope{Name: eventName, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	// raw bytes so redis stores the JSON as-is
	return r.Client.Publish(ctx, r.Channel, data).Err()
}
