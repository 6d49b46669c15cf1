package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(10, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(6 * time.Second)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "one token refilled")
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
}

func TestMemoryLimiter_Evict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(10, time.Minute)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(ctx, "old")
	now = now.Add(20 * time.Minute)
	_, _ = l.Allow(ctx, "fresh")

	assert.Equal(t, 1, l.Evict(10*time.Minute))
	assert.Equal(t, 1, l.Len())
}

func TestRedisLimiter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewRedisLimiter(client, "login:", 10, time.Minute)
	defer l.Close()

	ok, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, ok)
}
