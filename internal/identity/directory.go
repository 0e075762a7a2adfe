package identity

import (
	"context"
	"strings"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// DirectoryProvider serves users from the local accounts table. It backs
// development, tests and self-hosted installs without an external provider.
type DirectoryProvider struct {
	db *gorm.DB
}

func NewDirectoryProvider(db *gorm.DB) *DirectoryProvider {
	return &DirectoryProvider{db: db}
}

func (p *DirectoryProvider) Name() string { return "directory" }

func (p *DirectoryProvider) UsersByID(ctx context.Context, ids []string) ([]User, error) {
	var accounts []models.Account
	if err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accountsToUsers(accounts), nil
}

func (p *DirectoryProvider) UsersByEmail(ctx context.Context, emails []string) ([]User, error) {
	normalized := make([]string, 0, len(emails))
	for _, e := range emails {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(e)))
	}
	var accounts []models.Account
	if err := p.db.WithContext(ctx).Where("primary_email IN ?", normalized).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accountsToUsers(accounts), nil
}

// Upsert creates or replaces an account. Used by the seed tool.
func (p *DirectoryProvider) Upsert(ctx context.Context, account *models.Account) error {
	account.PrimaryEmail = strings.ToLower(strings.TrimSpace(account.PrimaryEmail))
	return p.db.WithContext(ctx).Save(account).Error
}

func accountsToUsers(accounts []models.Account) []User {
	users := make([]User, 0, len(accounts))
	for _, a := range accounts {
		emailID := "email_" + a.ID
		users = append(users, User{
			ID:                    a.ID,
			Username:              a.Username,
			EmailAddresses:        []EmailAddress{{ID: emailID, EmailAddress: a.PrimaryEmail}},
			PrimaryEmailAddressID: emailID,
			ImageURL:              a.ImageURL,
		})
	}
	return users
}
