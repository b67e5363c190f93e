package alert

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"pairwatch/internal/signal"
)

// Set PAIRWATCH_TEST_REDIS_ADDR (e.g. localhost:6379) to run against a live server.
func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("PAIRWATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PAIRWATCH_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = sub.Close() })
	ps := sub.Subscribe(ctx, "pairwatch:test")
	t.Cleanup(func() { _ = ps.Close() })
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	pub, err := NewRedisPublisher(ctx, addr, "", 0, "pairwatch:test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	want := signal.Alert{Kind: signal.KindPriceChange, Symbols: []string{"ETHUSDT"}, Percent: 4}
	require.NoError(t, pub.Publish(ctx, want))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got signal.Alert
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Equal(t, want.Kind, got.Kind)
	require.Equal(t, want.Percent, got.Percent)
}

func TestRedisPublisherUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisPublisher(ctx, "127.0.0.1:1", "", 0, "pairwatch:test")
	require.Error(t, err)
}
