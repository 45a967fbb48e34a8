package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStorageSharesSessionAcrossProcesses(t *testing.T) {
	client := openTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	profile := "test-" + time.Now().Format("150405.000000")
	first := NewStore(NewRedisStorage(client, profile), nil)
	second := NewStore(NewRedisStorage(client, profile), nil)
	defer func() { _ = first.ClearAuth(context.Background()) }()

	events, err := second.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, first.SetAuth(ctx, "tok", pharmacyUser()))
	assert.Equal(t, "tok", second.Token(ctx))
	assert.True(t, second.IsAuthenticated(ctx))

	select {
	case ev := <-events:
		assert.Equal(t, TokenKey, ev.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a pub/sub event")
	}

	require.NoError(t, first.ClearAuth(ctx))
	assert.False(t, second.IsAuthenticated(ctx))
}
