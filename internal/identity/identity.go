// Package identity isolates every call to the external identity provider and
// projects provider records into client-safe authors.
package identity

import (
	"context"
	"strings"

	"chirp/internal/models"
)

// EmailAddress is one address attached to a provider user.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User is the identity provider's record of an account. Field names follow
// the Clerk Backend API.
type User struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	ImageURL              string         `json:"image_url"`
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (u User) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID != "" && e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

// Provider is the external identity collaborator.
type Provider interface {
	// Name labels metrics and spans.
	Name() string
	// UsersByID returns the users that exist among ids, in any order.
	UsersByID(ctx context.Context, ids []string) ([]User, error)
	// UsersByEmail returns the users owning any of emails.
	UsersByEmail(ctx context.Context, emails []string) ([]User, error)
}

// DeriveUsername returns the lower-cased local part of email. Different
// addresses may collide.
func DeriveUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}

// Project converts a provider user into the public author shape.
func Project(u User) models.Author {
	username := ""
	if u.Username != nil {
		username = strings.TrimSpace(*u.Username)
	}
	if username == "" {
		username = DeriveUsername(u.PrimaryEmail())
	}
	return models.Author{
		ID:              u.ID,
		Username:        username,
		ProfileImageURL: u.ImageURL,
	}
}

// dedupe returns the distinct non-empty ids in first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
