package service

import (
	"context"
	"log/slog"

	"chirp/internal/models"
	"chirp/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// AuthorResolver resolves identity ids to author projections in one batch.
// *identity.Adapter implements it.
type AuthorResolver interface {
	ResolveUsers(ctx context.Context, ids []string) (map[string]models.Author, error)
}

// Feed joins posts with their authors. Each read makes exactly one identity
// lookup for the distinct author set, never one per post.
type Feed struct {
	posts *PostService
	users AuthorResolver
}

// NewFeed returns a Feed reading through posts and resolving with users.
func NewFeed(posts *PostService, users AuthorResolver) *Feed {
	return &Feed{posts: posts, users: users}
}

// All is the global feed, newest first.
func (f *Feed) All(ctx context.Context) ([]models.FeedItem, error) {
	posts, err := f.posts.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return f.Assemble(ctx, posts)
}

// ByAuthor is a single user's feed, newest first.
func (f *Feed) ByAuthor(ctx context.Context, authorID string) ([]models.FeedItem, error) {
	posts, err := f.posts.GetByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return f.Assemble(ctx, posts)
}

func (f *Feed) ByID(ctx context.Context, id string) (*models.FeedItem, error) {
	post, err := f.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := f.Assemble(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Likers resolves the users who liked postID, in like order.
func (f *Feed) Likers(ctx context.Context, postID string) ([]models.Author, error) {
	post, err := f.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(post.Likes))
	for _, like := range post.Likes {
		ids = append(ids, like.UserID)
	}
	resolved, err := f.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	authors := make([]models.Author, 0, len(ids))
	for _, id := range ids {
		author, ok := resolved[id]
		if !ok {
			return nil, models.NewInternalErrorWithMessage("liker not found", nil)
		}
		authors = append(authors, author)
	}
	return authors, nil
}

// Assemble zips posts with their authors, keeping the order of posts.
// An author the identity provider cannot resolve fails the whole read.
func (f *Feed) Assemble(ctx context.Context, posts []*models.Post) (_ []models.FeedItem, err error) {
	items := make([]models.FeedItem, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	span, ctx := observability.NewSpan(ctx, "feed.assemble")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	seen := make(map[string]struct{}, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.AuthorID]; ok {
			continue
		}
		seen[p.AuthorID] = struct{}{}
		ids = append(ids, p.AuthorID)
	}
	span.AddAttributes(
		attribute.Int("feed.posts", len(posts)),
		attribute.Int("feed.authors", len(ids)),
	)

	authors, err := f.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		author, ok := authors[p.AuthorID]
		if !ok {
			observability.GlobalLogger.ErrorContext(ctx, "feed author missing",
				slog.String("post_id", p.ID),
				slog.String("author_id", p.AuthorID),
				slog.String("trace_id", span.TraceID()),
			)
			return nil, models.NewInternalErrorWithMessage("author not found", nil)
		}
		if p.Likes == nil {
			p.Likes = []models.Like{}
		}
		items = append(items, models.FeedItem{Post: p, Author: author})
	}
	return items, nil
}

// resolve calls the identity provider once. A NOT_FOUND from the provider
// means stored data references users that no longer exist, which is an
// internal inconsistency rather than a client error.
func (f *Feed) resolve(ctx context.Context, ids []string) (map[string]models.Author, error) {
	if len(ids) == 0 {
		return map[string]models.Author{}, nil
	}
	authors, err := f.users.ResolveUsers(ctx, ids)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewInternalErrorWithMessage("author not found", err)
		}
		return nil, err
	}
	return authors, nil
}
