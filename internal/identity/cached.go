package identity

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"chirp/internal/cache"
	"chirp/internal/observability"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedProvider decorates a Provider with a per-user Redis cache. Misses
// are fetched from the inner provider in one batch, and concurrent identical
// batches share a single upstream call. Email lookups are not cached.
type CachedProvider struct {
	inner   Provider
	rdb     redis.Cmdable
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

// NewCachedProvider caches inner for ttl. A shared upstream fetch is bounded
// by timeout instead of by any single caller's context.
func NewCachedProvider(inner Provider, rdb redis.Cmdable, ttl, timeout time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = cache.IdentityUserTTL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl, timeout: timeout}
}

func (p *CachedProvider) Name() string { return p.inner.Name() }

func (p *CachedProvider) UsersByID(ctx context.Context, ids []string) ([]User, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.IdentityUserKey(id)
	}

	hits, err := cache.MGetJSON[User](ctx, p.rdb, keys)
	if err != nil {
		// A cache outage degrades to the provider.
		observability.GlobalLogger.WarnContext(ctx, "identity cache read failed", slog.String("error", err.Error()))
		hits = map[int]User{}
	}

	users := make([]User, 0, len(ids))
	var missing []string
	for i, id := range ids {
		if u, ok := hits[i]; ok {
			users = append(users, u)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return users, nil
	}

	fetched, err := p.fetch(ctx, missing)
	if err != nil {
		return nil, err
	}
	return append(users, fetched...), nil
}

func (p *CachedProvider) fetch(ctx context.Context, ids []string) ([]User, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	key := strings.Join(sorted, ",")

	ch := p.group.DoChan(key, func() (interface{}, error) {
		// waiters join this call, so the first caller's cancellation must not end it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		users, err := p.inner.UsersByID(ctx, ids)
		if err != nil {
			return nil, err
		}
		entries := make(map[string]User, len(users))
		for _, u := range users {
			entries[cache.IdentityUserKey(u.ID)] = u
		}
		if err := cache.MSetJSON(ctx, p.rdb, entries, p.ttl); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "identity cache write failed", slog.String("error", err.Error()))
		}
		return users, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]User), nil
	}
}

func (p *CachedProvider) UsersByEmail(ctx context.Context, emails []string) ([]User, error) {
	return p.inner.UsersByEmail(ctx, emails)
}

