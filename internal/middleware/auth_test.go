package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chirp/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, secret string, claims jwt.Claims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	app := fiber.New()
	InitMiddleware(&config.Config{JWTSecret: testSecret, JWTIssuer: "https://clerk.chirp.test"})

	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		userID, _ := UserID(c)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": userID})
	})

	claims := func(sub, iss string, exp time.Duration) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		}
	}
	const iss = "https://clerk.chirp.test"

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID string
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + signToken(t, testSecret, claims("user_2abc", iss, time.Hour), jwt.SigningMethodHS256),
			expectedStatus: http.StatusOK,
			expectedUserID: "user_2abc",
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + signToken(t, testSecret, claims("user_2abc", iss, -time.Hour), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + signToken(t, "another-secret-another-secret-another", claims("user_2abc", iss, time.Hour), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Issuer",
			authHeader:     "Bearer " + signToken(t, testSecret, claims("user_2abc", "https://evil.test", time.Hour), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Subject",
			authHeader:     "Bearer " + signToken(t, testSecret, claims("", iss, time.Hour), jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Missing Expiry",
			authHeader: "Bearer " + signToken(t, testSecret, jwt.RegisteredClaims{
				Subject: "user_2abc",
				Issuer:  iss,
			}, jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedUserID, body["userID"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", body["code"])
			}
		})
	}
}
