package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clerkServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClerkProvider_UsersByID(t *testing.T) {
	var requests atomic.Int32
	srv := clerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/v1/users", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		var users []User
		for _, id := range r.URL.Query()["user_id"] {
			users = append(users, user(id, id+"@example.com"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(users)
	})

	p, err := NewClerkProvider(srv.URL, "sk_test_123", time.Second)
	require.NoError(t, err)

	got, err := p.UsersByID(context.Background(), []string{"user_a", "user_b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "user_a@example.com", got[0].PrimaryEmail())
	assert.Equal(t, int32(1), requests.Load())
}

func TestClerkProvider_PagesLargeBatches(t *testing.T) {
	var requests atomic.Int32
	srv := clerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.LessOrEqual(t, len(r.URL.Query()["user_id"]), clerkPageSize)
		_, _ = w.Write([]byte("[]"))
	})

	p, err := NewClerkProvider(srv.URL, "sk_test_123", time.Second)
	require.NoError(t, err)

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("user_%d", i)
	}
	_, err = p.UsersByID(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
}

func TestClerkProvider_UsersByEmail(t *testing.T) {
	srv := clerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"jane.doe@gmail.com"}, r.URL.Query()["email_address"])
		_ = json.NewEncoder(w).Encode([]User{user("user_j", "jane.doe@gmail.com")})
	})

	p, err := NewClerkProvider(srv.URL, "sk_test_123", time.Second)
	require.NoError(t, err)

	got, err := p.UsersByEmail(context.Background(), []string{"jane.doe@gmail.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "jane.doe", Project(got[0]).Username)
}

func TestClerkProvider_Errors(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv := clerkServer(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"errors":[{"code":"authentication_invalid"}]}`, http.StatusUnauthorized)
		})
		p, err := NewClerkProvider(srv.URL, "sk_bad", time.Second)
		require.NoError(t, err)

		_, err = p.UsersByID(context.Background(), []string{"user_a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("bad json", func(t *testing.T) {
		srv := clerkServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		})
		p, err := NewClerkProvider(srv.URL, "sk_test_123", time.Second)
		require.NoError(t, err)

		_, err = p.UsersByEmail(context.Background(), []string{"a@b.c"})
		assert.Error(t, err)
	})

	t.Run("expired context", func(t *testing.T) {
		p, err := NewClerkProvider("http://127.0.0.1:1", "sk_test_123", time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		_, err = p.UsersByID(ctx, []string{"user_a"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNewClerkProvider_Validation(t *testing.T) {
	_, err := NewClerkProvider("ftp://clerk.test", "sk", time.Second)
	assert.Error(t, err)
	_, err = NewClerkProvider("https://api.clerk.com", "", time.Second)
	assert.Error(t, err)
}
