package middleware

import (
	"errors"
	"log/slog"

	"chirp/internal/models"
	"chirp/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit returns a Fiber middleware admitting requests through limiter.
// It keys by authenticated user id when present, otherwise by remote IP.
// Backend failures follow the limiter's own FailPolicy.
func RateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			id = "user:" + uid
		}

		decision, err := limiter.Allow(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, ratelimit.ErrUnavailable) {
				Logger.WarnContext(c.UserContext(), "Rate limit fail-closed",
					slog.String("path", c.Path()),
					slog.String("error", err.Error()),
				)
				return models.RespondWithError(c, models.NewInternalErrorWithMessage(ratelimit.ErrUnavailable.Error(), err))
			}
			return models.RespondWithError(c, models.NewInternalError(err))
		}

		if !decision.Allowed {
			return models.RespondWithError(c, models.NewRateLimitedError(decision.RetryAfter))
		}
		return c.Next()
	}
}
