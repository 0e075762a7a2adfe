package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	IdentityUserKeyPrefix = "identity:user:%s"
)

const (
	IdentityUserTTL = 5 * time.Minute
)

// IdentityUserKey is the cache key of one identity provider user.
func IdentityUserKey(userID string) string {
	return fmt.Sprintf(IdentityUserKeyPrefix, userID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	s, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, rdb redis.Cmdable, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// MGetJSON fetches keys in one round trip. It returns the raw JSON of every
// hit keyed by its position in keys; misses and undecodable values are absent.
func MGetJSON[T any](ctx context.Context, rdb redis.Cmdable, keys []string) (map[int]T, error) {
	out := make(map[int]T, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			continue
		}
		out[i] = item
	}
	return out, nil
}

// MSetJSON stores every value with the same TTL in one pipeline.
func MSetJSON[T any](ctx context.Context, rdb redis.Cmdable, values map[string]T, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	_, err := rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for key, v := range values {
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			p.Set(ctx, key, b, ttl)
		}
		return nil
	})
	return err
}

