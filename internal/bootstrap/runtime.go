// Package bootstrap wires configuration, storage, identity and services into
// a runnable process.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/identity"
	"chirp/internal/middleware"
	"chirp/internal/observability"
	"chirp/internal/ratelimit"
	"chirp/internal/repository"
	"chirp/internal/server"
	"chirp/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "chirp-api"

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SkipTracing leaves the no-op tracer in place (CLI tools).
	SkipTracing bool
}

// Runtime owns every long-lived client of the process.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	Provider  identity.Provider
	Directory *identity.DirectoryProvider
	Adapter   *identity.Adapter

	Posts          *service.PostService
	Feed           *service.Feed
	Profiles       *service.ProfileService
	ProfileLimiter ratelimit.Limiter

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the datastore and Redis and builds the services.
// Redis is mandatory while rate limiting is enabled.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.Logger = middleware.NewLogger(cfg.Env, slog.LevelInfo)
	observability.SetLogger(middleware.Logger)

	rt := &Runtime{Config: cfg, shutdownTracing: func(context.Context) error { return nil }}

	if !opts.SkipTracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("schema apply failed: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		if err := cache.InitRedis(ctx, cfg.RedisURL); err != nil {
			if cfg.RateLimitEnabled {
				_ = rt.Close(ctx)
				return nil, fmt.Errorf("redis connection failed: %w", err)
			}
			middleware.Logger.Warn("Redis unavailable, continuing without cache",
				slog.String("error", err.Error()))
		}
		rt.Redis = cache.GetClient()
	}

	if err := rt.wire(); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) wire() error {
	cfg := rt.Config

	postLimiter, err := rt.limiter("posts.create", cfg.PostRateLimit, cfg.PostRateWindow)
	if err != nil {
		return err
	}
	profileLimiter, err := rt.limiter("profile.by_email", cfg.ProfileRateLimit, time.Minute)
	if err != nil {
		return err
	}
	rt.ProfileLimiter = profileLimiter

	provider, err := rt.identityProvider()
	if err != nil {
		return err
	}
	rt.Provider = provider
	rt.Adapter = identity.NewAdapter(provider, cfg.IdentityTimeout)

	rt.Posts = service.NewPostService(repository.NewPostRepository(rt.DB), postLimiter, cfg.ExternalCallTimeout)
	rt.Feed = service.NewFeed(rt.Posts, rt.Adapter)
	rt.Profiles = service.NewProfileService(rt.Adapter)
	return nil
}

func (rt *Runtime) limiter(resource string, limit int, window time.Duration) (ratelimit.Limiter, error) {
	cfg := rt.Config
	if !cfg.RateLimitEnabled {
		return ratelimit.Disabled{}, nil
	}
	if rt.Redis == nil {
		return nil, errors.New("rate limiting requires Redis")
	}
	policy := ratelimit.FailClosed
	if cfg.RateLimitFailOpen {
		policy = ratelimit.FailOpen
	}
	return ratelimit.NewRedisLimiter(rt.Redis, ratelimit.Options{
		Resource: resource,
		Limit:    limit,
		Window:   window,
		Policy:   policy,
	})
}

func (rt *Runtime) identityProvider() (identity.Provider, error) {
	cfg := rt.Config

	var provider identity.Provider
	switch cfg.IdentityProvider {
	case config.IdentityClerk:
		clerk, err := identity.NewClerkProvider(cfg.IdentityAPIURL, cfg.IdentityAPIKey, cfg.IdentityTimeout)
		if err != nil {
			return nil, fmt.Errorf("identity provider: %w", err)
		}
		provider = clerk
	default:
		rt.Directory = identity.NewDirectoryProvider(rt.DB)
		provider = rt.Directory
	}

	if rt.Redis != nil && cfg.IdentityCacheTTL > 0 {
		provider = identity.NewCachedProvider(provider, rt.Redis, cfg.IdentityCacheTTL, cfg.IdentityTimeout)
	}
	return provider, nil
}

// ServerDeps exposes the runtime to the HTTP layer.
func (rt *Runtime) ServerDeps() server.Deps {
	return server.Deps{
		DB:             rt.DB,
		Redis:          rt.Redis,
		Posts:          rt.Posts,
		Feed:           rt.Feed,
		Profiles:       rt.Profiles,
		ProfileLimiter: rt.ProfileLimiter,
	}
}

// Close flushes traces and releases Redis and the connection pool.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := rt.shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if rt.Redis != nil {
		closeRedis := rt.Redis.Close
		if rt.Redis == cache.GetClient() {
			closeRedis = cache.Close
		}
		if err := closeRedis(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
		rt.Redis = nil
	}
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
		rt.DB = nil
	}
	return errors.Join(errs...)
}
