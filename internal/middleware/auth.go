// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"strings"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, models.NewUnauthorizedError(msg))
}

// AuthRequired is a middleware that enforces authentication for protected routes.
// The token subject is the identity provider's opaque user id.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid authorization header format")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return unauthorized(c, "Invalid or expired token")
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return unauthorized(c, "Invalid token structure - missing subject")
	}

	c.Locals(LocalUserID, claims.Subject)
	c.SetUserContext(WithUserID(c.UserContext(), claims.Subject))

	return c.Next()
}

// UserID returns the authenticated user id stored by AuthRequired.
func UserID(c *fiber.Ctx) (string, bool) {
	uid, ok := c.Locals(LocalUserID).(string)
	return uid, ok && uid != ""
}
