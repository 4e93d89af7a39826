package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a throwaway Redis, e.g. REDIS_TEST_ADDR=localhost:6379.
func testRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := NewRedisClient(addr)
	require.NotNil(t, rdb, "redis at %s unreachable", addr)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

func TestRedisStoreSetGetExpiry(t *testing.T) {
	s := testRedis(t)
	ctx := context.Background()
	key := fmt.Sprintf("salesdesk-test:%d:k", time.Now().UnixNano())
	t.Cleanup(func() { _ = s.Invalidate(ctx, key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, []byte("v"), 300*time.Second))
	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	ttl, err := s.rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.InDelta(t, 300, ttl.Seconds(), 5)

	require.NoError(t, s.Invalidate(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreInvalidatePrefixWalksAllPages(t *testing.T) {
	s := testRedis(t)
	ctx := context.Background()
	base := fmt.Sprintf("salesdesk-test:%d:", time.Now().UnixNano())
	keep := base + "other:1"
	t.Cleanup(func() { _ = s.InvalidatePrefix(ctx, base) })

	// More keys than one SCAN batch returns.
	for i := 0; i < 450; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("%smeetings:77:%d", base, i), []byte("x"), time.Minute))
	}
	require.NoError(t, s.Set(ctx, keep, []byte("x"), time.Minute))

	require.NoError(t, s.InvalidatePrefix(ctx, base+"meetings:"))

	left, err := s.rdb.Keys(ctx, base+"meetings:*").Result()
	require.NoError(t, err)
	assert.Empty(t, left)
	_, ok, err := s.Get(ctx, keep)
	require.NoError(t, err)
	assert.True(t, ok)
}
