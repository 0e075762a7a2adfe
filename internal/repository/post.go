// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedLimit is the fixed page size of every post listing.
const FeedLimit = 100

// PostRepository defines the interface for post and like data operations.
//
// Errors are gorm's: GetByID returns gorm.ErrRecordNotFound for a missing
// post, Like returns gorm.ErrForeignKeyViolated when the post does not exist,
// and Unlike returns gorm.ErrRecordNotFound when no like was removed.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]*models.Post, error)
	Like(ctx context.Context, postID, userID string) error
	Unlike(ctx context.Context, postID, userID string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Create", "posts")
	defer span.End()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "author_id": post.AuthorID})
	return nil
}

// newestFirst orders by insertion; ids are time-ordered so they break
// created_at ties.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

func withLikes(db *gorm.DB) *gorm.DB {
	return db.Preload("Likes", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC").Order("user_id ASC")
	})
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "GetByID", "posts")
	defer span.End()

	var post models.Post
	if err := withLikes(r.db.WithContext(ctx)).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"post_id": id})
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", "posts")
	defer span.End()

	var posts []*models.Post
	err := withLikes(newestFirst(r.db.WithContext(ctx))).
		Limit(clampLimit(limit)).
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListByAuthor", "posts")
	defer span.End()

	var posts []*models.Post
	err := withLikes(newestFirst(r.db.WithContext(ctx))).
		Where("author_id = ?", authorID).
		Limit(clampLimit(limit)).
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_author")
		return nil, err
	}
	return posts, nil
}

// Like inserts the (post, user) pair. The composite primary key plus
// ON CONFLICT DO NOTHING makes repeated likes a no-op.
func (r *postRepository) Like(ctx context.Context, postID, userID string) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Like", "likes")
	defer span.End()

	like := &models.Like{PostID: postID, UserID: userID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
		r.log.LogError(ctx, err, "like")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": postID, "user_id": userID})
	return nil
}

// Unlike hard-deletes the pair in a single statement.
func (r *postRepository) Unlike(ctx context.Context, postID, userID string) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Unlike", "likes")
	defer span.End()

	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "unlike")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": postID, "user_id": userID})
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > FeedLimit {
		return FeedLimit
	}
	return limit
}
