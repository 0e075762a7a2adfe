package server

import (
	"context"
	"strings"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ProfileAPI resolves public user profiles. *service.ProfileService implements it.
type ProfileAPI interface {
	ByEmail(ctx context.Context, email string) (models.Author, error)
	UsersByID(ctx context.Context, ids []string) ([]models.Author, error)
}

// GetProfileByEmail handles GET /api/profile?email=
// @Summary Look up a user by email
// @Tags profile
// @Produce json
// @Param email query string true "Email address"
// @Success 200 {object} models.Author
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /profile [get]
func (s *Server) GetProfileByEmail(c *fiber.Ctx) error {
	author, err := s.profiles.ByEmail(c.UserContext(), c.Query("email"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(author)
}

// GetUsersByID handles GET /api/profile/users?id=a&id=b
// @Summary Look up users by id
// @Description Accepts repeated or comma-separated id parameters. Unknown ids are skipped.
// @Tags profile
// @Produce json
// @Param id query []string true "User IDs" collectionFormat(multi)
// @Success 200 {array} models.Author
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/users [get]
func (s *Server) GetUsersByID(c *fiber.Ctx) error {
	authors, err := s.profiles.UsersByID(c.UserContext(), queryIDs(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(authors)
}

// queryIDs collects every id query value, splitting comma-separated lists.
func queryIDs(c *fiber.Ctx) []string {
	var ids []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("id") {
		for _, id := range strings.Split(string(raw), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
