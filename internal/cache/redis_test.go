package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianLinares/petcare-app-sub000/internal/config"
)

func TestNewRedisClientAndStreamGroup(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, EnsureStreamGroup(ctx, client, "identity:mail", "mailers"))
	require.NoError(t, EnsureStreamGroup(ctx, client, "identity:mail", "mailers"), "second call is idempotent")

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "identity:mail", Values: map[string]any{"k": "v"}}).Err())
	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    "mailers",
		Consumer: "c1",
		Streams:  []string{"identity:mail", ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Len(t, streams[0].Messages, 1)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
