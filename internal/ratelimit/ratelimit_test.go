package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chirp/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverClock drives the miniredis TIME reply the limiter script reads.
type serverClock struct {
	mr  *miniredis.Miniredis
	now time.Time
}

func (c *serverClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	c.mr.SetTime(c.now)
}

func setupLimiter(t *testing.T, limit int, window time.Duration, policy FailPolicy) (*RedisLimiter, *serverClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &serverClock{mr: mr, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mr.SetTime(clock.now)

	limiter, err := NewRedisLimiter(client, Options{
		Resource: "posts.create",
		Limit:    limit,
		Window:   window,
		Policy:   policy,
	})
	require.NoError(t, err)
	return limiter, clock, mr
}

func TestRedisLimiter_FourthCallInWindowDenied(t *testing.T) {
	limiter, clock, _ := setupLimiter(t, 3, time.Minute, FailClosed)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user_a")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		clock.Advance(10 * time.Second)
	}

	d, err := limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	// first admission was 30s ago
	assert.Equal(t, 30*time.Second, d.RetryAfter)
}

func TestRedisLimiter_AllowsAfterWindowElapses(t *testing.T) {
	limiter, clock, _ := setupLimiter(t, 3, time.Minute, FailClosed)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user_a")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	clock.Advance(59 * time.Second)
	d, err := limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	clock.Advance(time.Second)
	d, err = limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_RejectionsNotRecorded(t *testing.T) {
	limiter, clock, mr := setupLimiter(t, 1, time.Minute, FailClosed)
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		d, err = limiter.Allow(ctx, "user_a")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	}

	members, err := mr.ZMembers(limiter.Key("user_a"))
	require.NoError(t, err)
	assert.Len(t, members, 1)

	clock.Advance(10 * time.Second)
	d, err = limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_InstancesShareServerClock(t *testing.T) {
	first, clock, mr := setupLimiter(t, 1, time.Minute, FailClosed)
	ctx := context.Background()

	d, err := first.Allow(ctx, "user_a")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// another instance with its own client sees the same window
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	second, err := NewRedisLimiter(client, Options{Resource: "posts.create", Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	clock.Advance(20 * time.Second)
	d, err = second.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestRedisLimiter_FailureNotCountedAsRedisError(t *testing.T) {
	limiter, _, mr := setupLimiter(t, 3, time.Minute, FailOpen)
	mr.Close()

	before := testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("ratelimit"))
	_, err := limiter.Allow(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, before, testutil.ToFloat64(observability.RedisErrorRate.WithLabelValues("ratelimit")))
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _, _ := setupLimiter(t, 1, time.Minute, FailClosed)
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "user_a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "user_b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_ConcurrentCallersNeverExceedQuota(t *testing.T) {
	limiter, _, _ := setupLimiter(t, 3, time.Minute, FailClosed)
	ctx := context.Background()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Allow(ctx, "user_a")
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), admitted.Load())
}

func TestRedisLimiter_FailPolicy(t *testing.T) {
	t.Run("fail closed", func(t *testing.T) {
		limiter, _, mr := setupLimiter(t, 3, time.Minute, FailClosed)
		mr.Close()

		_, err := limiter.Allow(context.Background(), "user_a")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnavailable))
	})

	t.Run("fail open", func(t *testing.T) {
		limiter, _, mr := setupLimiter(t, 3, time.Minute, FailOpen)
		mr.Close()

		d, err := limiter.Allow(context.Background(), "user_a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

func TestNewRedisLimiter_InvalidOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err := NewRedisLimiter(nil, Options{Resource: "r", Limit: 1, Window: time.Second})
	assert.Error(t, err)
	_, err = NewRedisLimiter(client, Options{Limit: 1, Window: time.Second})
	assert.Error(t, err)
	_, err = NewRedisLimiter(client, Options{Resource: "r", Limit: 0, Window: time.Second})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	d, err := Disabled{}.Allow(context.Background(), "anyone")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
