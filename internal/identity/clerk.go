package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// clerkPageSize is the largest id batch sent per request.
const clerkPageSize = 100

// ClerkProvider reads users from a Clerk-compatible Backend API.
type ClerkProvider struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *fiber.Client
}

// NewClerkProvider returns a provider calling baseURL with the secret apiKey.
func NewClerkProvider(baseURL, apiKey string, timeout time.Duration) (*ClerkProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid identity api url %q", baseURL)
	}
	if apiKey == "" {
		return nil, errors.New("identity api key is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ClerkProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &fiber.Client{UserAgent: "chirp-identity"},
	}, nil
}

func (p *ClerkProvider) Name() string { return "clerk" }

// UsersByID fetches ids in pages of clerkPageSize.
func (p *ClerkProvider) UsersByID(ctx context.Context, ids []string) ([]User, error) {
	var all []User
	for start := 0; start < len(ids); start += clerkPageSize {
		end := min(start+clerkPageSize, len(ids))
		q := url.Values{}
		for _, id := range ids[start:end] {
			q.Add("user_id", id)
		}
		q.Set("limit", strconv.Itoa(clerkPageSize))

		users, err := p.listUsers(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, users...)
	}
	return all, nil
}

func (p *ClerkProvider) UsersByEmail(ctx context.Context, emails []string) ([]User, error) {
	q := url.Values{}
	for _, e := range emails {
		q.Add("email_address", e)
	}
	q.Set("limit", strconv.Itoa(clerkPageSize))
	return p.listUsers(ctx, q)
}

// listUsers calls GET /v1/users. The fiber agent has no context support, so
// the request timeout is the smaller of the configured timeout and the
// context deadline.
func (p *ClerkProvider) listUsers(ctx context.Context, q url.Values) ([]User, error) {
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		timeout = min(timeout, remaining)
	}

	agent := p.client.Get(p.baseURL + "/v1/users")
	agent.QueryString(q.Encode())
	agent.Set(fiber.HeaderAuthorization, "Bearer "+p.apiKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("clerk request: %w", errors.Join(errs...))
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("clerk responded %d: %s", code, truncate(body, 200))
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode clerk users: %w", err)
	}
	return users, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
