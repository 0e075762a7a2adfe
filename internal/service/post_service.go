// Package service contains the application's business operations. Services
// validate input, enforce quotas and translate storage errors into
// models.AppError values; transport concerns stay in internal/server.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/ratelimit"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"gorm.io/gorm"
)

const defaultCallTimeout = 5 * time.Second

type PostService struct {
	postRepo repository.PostRepository
	limiter  ratelimit.Limiter
	timeout  time.Duration
}

// NewPostService builds the post/like service. Every repository call is
// bounded by timeout; a nil limiter admits every create.
func NewPostService(postRepo repository.PostRepository, limiter ratelimit.Limiter, timeout time.Duration) *PostService {
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &PostService{postRepo: postRepo, limiter: limiter, timeout: timeout}
}

// CreatePost validates content, charges the author's quota and stores the
// post. Nothing is written when validation or the limiter rejects the call.
func (s *PostService) CreatePost(ctx context.Context, authorID, content string) (*models.Post, error) {
	if authorID == "" {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	if err := validation.Content(content); err != nil {
		return nil, err
	}

	decision, err := s.limiter.Allow(ctx, authorID)
	if err != nil {
		if errors.Is(err, ratelimit.ErrUnavailable) {
			return nil, models.NewInternalErrorWithMessage("rate limit unavailable", err)
		}
		return nil, models.NewInternalError(err)
	}
	if !decision.Allowed {
		return nil, models.NewRateLimitedError(decision.RetryAfter)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post := &models.Post{AuthorID: authorID, Content: content}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, storeError(err)
	}
	post.Likes = []models.Like{}
	observability.PostsCreated.Inc()
	return post, nil
}

func (s *PostService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, models.NewValidationError("post id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, storeError(err)
	}
	return post, nil
}

// GetAll returns the newest posts across all authors.
func (s *PostService) GetAll(ctx context.Context) ([]*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.postRepo.List(ctx, repository.FeedLimit)
	if err != nil {
		return nil, storeError(err)
	}
	return posts, nil
}

// GetByAuthor returns the newest posts of one author. An unknown author has
// no posts; that is not an error.
func (s *PostService) GetByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	if authorID == "" {
		return nil, models.NewValidationError("author id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	posts, err := s.postRepo.ListByAuthor(ctx, authorID, repository.FeedLimit)
	if err != nil {
		return nil, storeError(err)
	}
	return posts, nil
}

// Like records that userID likes postID. Liking twice is a no-op.
func (s *PostService) Like(ctx context.Context, postID, userID string) error {
	return s.ToggleLike(ctx, postID, userID, models.ActionLike)
}

// Unlike removes userID's like. It fails with NOT_FOUND when there was none.
func (s *PostService) Unlike(ctx context.Context, postID, userID string) error {
	return s.ToggleLike(ctx, postID, userID, models.ActionUnlike)
}

// ToggleLike applies action to the (post, user) pair.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string, action models.LikeAction) error {
	if userID == "" {
		return models.NewUnauthorizedError("authentication required")
	}
	if !action.Valid() {
		return models.NewFieldValidationError(map[string]string{
			"action": fmt.Sprintf("must be %q or %q", models.ActionLike, models.ActionUnlike),
		})
	}
	if postID == "" {
		return models.NewValidationError("post id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	if action == models.ActionLike {
		err = s.postRepo.Like(ctx, postID, userID)
	} else {
		err = s.postRepo.Unlike(ctx, postID, userID)
	}

	switch {
	case err == nil:
		observability.LikeMutations.WithLabelValues(string(action), "ok").Inc()
		return nil
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		observability.LikeMutations.WithLabelValues(string(action), "not_found").Inc()
		return models.NewNotFoundError("Post", postID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		observability.LikeMutations.WithLabelValues(string(action), "not_found").Inc()
		return &models.AppError{Code: models.CodeNotFound, Message: "like not found"}
	default:
		observability.LikeMutations.WithLabelValues(string(action), "error").Inc()
		return storeError(err)
	}
}

// storeError wraps an unexpected datastore error as INTERNAL_ERROR.
func storeError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewInternalErrorWithMessage("datastore timeout", err)
	}
	return models.NewInternalError(err)
}
