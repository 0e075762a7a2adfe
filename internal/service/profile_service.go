package service

import (
	"context"
	"fmt"
	"strings"

	"chirp/internal/models"
	"chirp/internal/validation"
)

// maxProfileIDs bounds a single getUsersById request.
const maxProfileIDs = 100

// UserDirectory looks up author projections. *identity.Adapter implements it.
type UserDirectory interface {
	ByEmail(ctx context.Context, email string) (models.Author, error)
	UsersByID(ctx context.Context, ids []string) ([]models.Author, error)
}

type ProfileService struct {
	users UserDirectory
}

func NewProfileService(users UserDirectory) *ProfileService {
	return &ProfileService{users: users}
}

// ByEmail resolves the author owning email, matched case-insensitively.
func (s *ProfileService) ByEmail(ctx context.Context, email string) (models.Author, error) {
	normalized, err := validation.Email(email)
	if err != nil {
		return models.Author{}, err
	}
	return s.users.ByEmail(ctx, normalized)
}

// UsersByID returns the known users among ids, in request order.
func (s *ProfileService) UsersByID(ctx context.Context, ids []string) ([]models.Author, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, models.NewFieldValidationError(map[string]string{"id": "at least one id is required"})
	}
	if len(cleaned) > maxProfileIDs {
		return nil, models.NewFieldValidationError(map[string]string{
			"id": fmt.Sprintf("at most %d ids are allowed", maxProfileIDs),
		})
	}
	return s.users.UsersByID(ctx, cleaned)
}
