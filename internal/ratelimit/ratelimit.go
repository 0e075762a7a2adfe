// Package ratelimit implements a Redis-backed sliding-window rate limiter.
package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by a fail-closed limiter when its backend fails.
var ErrUnavailable = errors.New("rate limit unavailable")

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailClosed rejects the operation if Redis is unavailable.
	FailClosed FailPolicy = iota
	// FailOpen allows the operation to proceed if Redis is unavailable.
	FailOpen
)

func (p FailPolicy) String() string {
	if p == FailOpen {
		return "fail_open"
	}
	return "fail_closed"
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the oldest admitted request leaves the
	// window. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter admits or rejects requests for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Options configures a RedisLimiter.
type Options struct {
	// Resource namespaces keys, e.g. "posts.create".
	Resource string
	Limit    int
	Window   time.Duration
	Policy   FailPolicy
}

//go:embed sliding_window.lua
var slidingWindowLua string

var slidingWindow = redis.NewScript(slidingWindowLua)

// RedisLimiter keeps one sorted set per key, scored by the Redis server's
// clock in milliseconds. Trim, count and admit run as a single Lua script so
// concurrent callers across processes cannot overshoot the quota.
// Rejected calls are not recorded.
type RedisLimiter struct {
	client redis.Scripter
	opts   Options
}

// NewRedisLimiter validates opts and returns a limiter backed by client.
func NewRedisLimiter(client redis.Scripter, opts Options) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is nil")
	}
	if opts.Resource == "" {
		return nil, errors.New("ratelimit: resource is required")
	}
	if opts.Limit <= 0 || opts.Window <= 0 {
		return nil, fmt.Errorf("ratelimit: invalid quota %d per %s", opts.Limit, opts.Window)
	}
	return &RedisLimiter{client: client, opts: opts}, nil
}

// Key returns the Redis key used for id.
func (l *RedisLimiter) Key(id string) string {
	return fmt.Sprintf("rl:%s:%s", l.opts.Resource, id)
}

// Allow records and admits the call if fewer than Limit calls were admitted
// for key within the trailing window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	ctx, span := observability.TraceRedisOperation(ctx, "ratelimit.allow")
	defer span.End()

	member, err := uuid.NewV7()
	if err != nil {
		return l.fail(ctx, key, err)
	}

	res, err := slidingWindow.Run(ctx, l.client,
		[]string{l.Key(key)},
		l.opts.Window.Milliseconds(), l.opts.Limit, member.String(),
	).Int64Slice()
	if err != nil {
		return l.fail(ctx, key, err)
	}
	if len(res) != 3 {
		return l.fail(ctx, key, fmt.Errorf("unexpected script reply %v", res))
	}

	if res[0] == 1 {
		observability.RecordRateLimitDecision(l.opts.Resource, "allowed")
		return Decision{Allowed: true, Remaining: l.opts.Limit - int(res[1])}, nil
	}

	retry := time.Duration(res[2]) * time.Millisecond
	if retry < time.Millisecond {
		retry = time.Millisecond
	}
	observability.RecordRateLimitDecision(l.opts.Resource, "denied")
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

func (l *RedisLimiter) fail(ctx context.Context, key string, err error) (Decision, error) {
	// transport errors are already counted by the client hook
	observability.RecordRateLimitDecision(l.opts.Resource, "error")
	observability.GlobalLogger.WarnContext(ctx, "rate limiter backend failure",
		slog.String("resource", l.opts.Resource),
		slog.String("key", key),
		slog.String("policy", l.opts.Policy.String()),
		slog.String("error", err.Error()),
	)
	if l.opts.Policy == FailOpen {
		return Decision{Allowed: true}, nil
	}
	return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Disabled admits every call. It is used when RATE_LIMIT_ENABLED is false.
type Disabled struct{}

func (Disabled) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}
