package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// startRedis starts a Redis testcontainer and returns its URL.
func startRedis(t *testing.T) string {
	t.Helper()
	if os.Getenv("SPACEDREP_INTEGRATION") == "" {
		t.Skip("SPACEDREP_INTEGRATION environment variable not set, skipping integration test")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return "redis://" + endpoint
}

func TestRedisLocker(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewRedisLocker(rdb, 5*time.Second, 200*time.Millisecond, nil)

	unlock, err := locker.Lock(ctx, "alice/word-1")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "alice/word-1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Lock(ctx, "alice/word-2")
	require.NoError(t, err)
	other()

	unlock()
	unlock, err = locker.Lock(ctx, "alice/word-1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	short := NewRedisLocker(rdb, 100*time.Millisecond, time.Second, nil)
	stale, err := short.Lock(ctx, "k")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	current, err := short.Lock(ctx, "k")
	require.NoError(t, err)

	stale()
	exists, err := rdb.Exists(ctx, keyPrefix+"k").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
	current()
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}
