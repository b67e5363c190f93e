package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pairwatch/internal/signal"
)

// RedisPublisher publishes alerts as JSON on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to Redis and pings it before returning.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, channel string) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

// Channel returns the pub/sub channel alerts are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

// Publish sends the alert as JSON with PUBLISH.
func (p *RedisPublisher) Publish(ctx context.Context, a signal.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

// Close releases the underlying client connections.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
