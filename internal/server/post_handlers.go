package server

import (
	"context"

	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// PostAPI is the post/like mutation surface. *service.PostService implements it.
type PostAPI interface {
	CreatePost(ctx context.Context, authorID, content string) (*models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string, action models.LikeAction) error
}

// FeedAPI is the denormalized read surface. *service.Feed implements it.
type FeedAPI interface {
	All(ctx context.Context) ([]models.FeedItem, error)
	ByID(ctx context.Context, id string) (*models.FeedItem, error)
	ByAuthor(ctx context.Context, authorID string) ([]models.FeedItem, error)
	Likers(ctx context.Context, postID string) ([]models.Author, error)
}

// LikeRequest is the body of POST /api/posts/:id/like.
type LikeRequest struct {
	Action models.LikeAction `json:"action"`
}

// LikeResponse acknowledges an applied like toggle.
type LikeResponse struct {
	PostID string            `json:"postId"`
	Action models.LikeAction `json:"action"`
}

// GetPosts handles GET /api/posts
// @Summary Global feed
// @Description Newest 100 posts with their authors and likes.
// @Tags posts
// @Produce json
// @Success 200 {array} models.FeedItem
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	items, err := s.feed.All(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(items)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.FeedItem
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	item, err := s.feed.ByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(item)
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary Author feed
// @Description Newest 100 posts of one author.
// @Tags posts
// @Produce json
// @Param id path string true "Author ID"
// @Success 200 {array} models.FeedItem
// @Failure 500 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	items, err := s.feed.ByAuthor(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(items)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Content must be 1 to 280 characters of emoji only. Limited to 3 posts per minute per author.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validation.PostInput true "Post content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	var req validation.PostInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.posts.CreatePost(c.UserContext(), userID, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body LikeRequest true "like or unlike"
// @Success 200 {object} LikeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	var req LikeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	postID := c.Params("id")
	if err := s.posts.ToggleLike(c.UserContext(), postID, userID, req.Action); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(LikeResponse{PostID: postID, Action: req.Action})
}

// GetPostLikers handles GET /api/posts/:id/likes
// @Summary Users who liked a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {array} models.Author
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/likes [get]
func (s *Server) GetPostLikers(c *fiber.Ctx) error {
	likers, err := s.feed.Likers(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(likers)
}
