package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/models"
	"chirp/internal/observability"
)

// Adapter is the single entry point to the identity provider.
type Adapter struct {
	provider Provider
	timeout  time.Duration
}

// NewAdapter wraps provider. Each provider call is bounded by timeout.
func NewAdapter(provider Provider, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{provider: provider, timeout: timeout}
}

// ResolveUsers projects every resolvable id with one provider call.
// An empty input returns an empty map without calling the provider. If ids
// is non-empty and nothing resolves, it fails with NOT_FOUND; a partial
// result is returned as-is for callers to judge.
func (a *Adapter) ResolveUsers(ctx context.Context, ids []string) (map[string]models.Author, error) {
	unique := dedupe(ids)
	out := make(map[string]models.Author, len(unique))
	if len(unique) == 0 {
		return out, nil
	}

	users, err := a.call(ctx, "users_by_id", len(unique), func(ctx context.Context) ([]User, error) {
		return a.provider.UsersByID(ctx, unique)
	})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = Project(u)
	}
	if len(out) == 0 {
		return nil, userNotFound()
	}
	return out, nil
}

// UsersByID returns the projections of ids in request order, skipping ids
// the provider does not know.
func (a *Adapter) UsersByID(ctx context.Context, ids []string) ([]models.Author, error) {
	resolved, err := a.ResolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Author, 0, len(resolved))
	for _, id := range dedupe(ids) {
		if author, ok := resolved[id]; ok {
			out = append(out, author)
		}
	}
	if len(out) == 0 {
		return nil, userNotFound()
	}
	return out, nil
}

// ByEmail resolves the user owning email.
func (a *Adapter) ByEmail(ctx context.Context, email string) (models.Author, error) {
	users, err := a.call(ctx, "users_by_email", 1, func(ctx context.Context) ([]User, error) {
		return a.provider.UsersByEmail(ctx, []string{email})
	})
	if err != nil {
		return models.Author{}, err
	}
	if len(users) == 0 {
		return models.Author{}, userNotFound()
	}
	return Project(users[0]), nil
}

func userNotFound() error {
	return &models.AppError{Code: models.CodeNotFound, Message: "user not found"}
}

func (a *Adapter) call(ctx context.Context, method string, keys int, fn func(context.Context) ([]User, error)) ([]User, error) {
	provider := a.provider.Name()
	ctx, span := observability.TraceIdentityLookup(ctx, provider, method, keys)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	users, err := fn(ctx)
	observability.IdentityLookupDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.RecordIdentityLookup(provider, "error")
		observability.RecordErrorInContext(ctx, err)
		observability.GlobalLogger.ErrorContext(ctx, "identity lookup failed",
			slog.String("provider", provider),
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewInternalErrorWithMessage("identity provider timeout", err)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(fmt.Errorf("identity %s: %w", method, err))
	}

	outcome := "hit"
	if len(users) == 0 {
		outcome = "empty"
	}
	observability.RecordIdentityLookup(provider, outcome)
	return users, nil
}
