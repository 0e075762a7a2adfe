package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolverStub is a stub for AuthorResolver that records every call.
type resolverStub struct {
	calls   [][]string
	authors map[string]models.Author
	err     error
}

func (r *resolverStub) ResolveUsers(_ context.Context, ids []string) (map[string]models.Author, error) {
	r.calls = append(r.calls, append([]string(nil), ids...))
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]models.Author, len(ids))
	for _, id := range ids {
		if a, ok := r.authors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func knownAuthors(ids ...string) *resolverStub {
	authors := make(map[string]models.Author, len(ids))
	for _, id := range ids {
		authors[id] = models.Author{ID: id, Username: "name_" + id}
	}
	return &resolverStub{authors: authors}
}

func TestFeed_Assemble_OneLookupPerDistinctAuthorSet(t *testing.T) {
	t.Parallel()

	resolver := knownAuthors("user_a", "user_b")
	feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), resolver)

	posts := []*models.Post{
		{ID: "p3", AuthorID: "user_a"},
		{ID: "p2", AuthorID: "user_b"},
		{ID: "p1", AuthorID: "user_a"},
	}
	items, err := feed.Assemble(context.Background(), posts)
	require.NoError(t, err)

	require.Len(t, resolver.calls, 1)
	assert.Equal(t, []string{"user_a", "user_b"}, resolver.calls[0])

	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, posts[i].ID, item.Post.ID)
		assert.Equal(t, posts[i].AuthorID, item.Author.ID)
		assert.NotNil(t, item.Post.Likes)
	}
}

func TestFeed_Assemble_SingleAuthorIDOnce(t *testing.T) {
	t.Parallel()

	resolver := knownAuthors("user_a")
	feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), resolver)

	_, err := feed.Assemble(context.Background(), []*models.Post{
		{ID: "p2", AuthorID: "user_a"},
		{ID: "p1", AuthorID: "user_a"},
	})
	require.NoError(t, err)
	require.Len(t, resolver.calls, 1)
	assert.Equal(t, []string{"user_a"}, resolver.calls[0])
}

func TestFeed_Assemble_EmptySkipsLookup(t *testing.T) {
	t.Parallel()

	resolver := knownAuthors()
	feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), resolver)

	items, err := feed.Assemble(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, resolver.calls)
}

func TestFeed_Assemble_MissingAuthor(t *testing.T) {
	t.Parallel()

	t.Run("partial resolution", func(t *testing.T) {
		t.Parallel()
		feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), knownAuthors("user_a"))

		_, err := feed.Assemble(context.Background(), []*models.Post{
			{ID: "p2", AuthorID: "user_a"},
			{ID: "p1", AuthorID: "ghost"},
		})
		appErr := assertCode(t, err, models.CodeInternal)
		assert.Equal(t, "author not found", appErr.Message)
	})

	t.Run("provider reports not found", func(t *testing.T) {
		t.Parallel()
		resolver := &resolverStub{err: &models.AppError{Code: models.CodeNotFound, Message: "user not found"}}
		feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), resolver)

		_, err := feed.Assemble(context.Background(), []*models.Post{{ID: "p1", AuthorID: "ghost"}})
		appErr := assertCode(t, err, models.CodeInternal)
		assert.Equal(t, "author not found", appErr.Message)
	})

	t.Run("provider failure passes through", func(t *testing.T) {
		t.Parallel()
		resolver := &resolverStub{err: models.NewInternalError(errors.New("upstream 502"))}
		feed := NewFeed(NewPostService(noopPostRepo(), allowAll(), time.Second), resolver)

		_, err := feed.Assemble(context.Background(), []*models.Post{{ID: "p1", AuthorID: "user_a"}})
		appErr := assertCode(t, err, models.CodeInternal)
		assert.Equal(t, "Internal server error", appErr.Message)
	})
}

func TestFeed_ByID(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: "user_a", Likes: []models.Like{{PostID: id, UserID: "user_b"}}}, nil
	}
	feed := NewFeed(NewPostService(repo, allowAll(), time.Second), knownAuthors("user_a"))

	item, err := feed.ByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", item.Post.ID)
	assert.Equal(t, "name_user_a", item.Author.Username)
	assert.Len(t, item.Post.Likes, 1)
}

func TestFeed_Likers(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: "user_a", Likes: []models.Like{
			{PostID: id, UserID: "user_c"},
			{PostID: id, UserID: "user_b"},
		}}, nil
	}

	t.Run("in like order", func(t *testing.T) {
		t.Parallel()
		resolver := knownAuthors("user_b", "user_c")
		feed := NewFeed(NewPostService(repo, allowAll(), time.Second), resolver)

		likers, err := feed.Likers(context.Background(), "p1")
		require.NoError(t, err)
		require.Len(t, likers, 2)
		assert.Equal(t, "user_c", likers[0].ID)
		assert.Equal(t, "user_b", likers[1].ID)
		assert.Len(t, resolver.calls, 1)
	})

	t.Run("missing liker", func(t *testing.T) {
		t.Parallel()
		feed := NewFeed(NewPostService(repo, allowAll(), time.Second), knownAuthors("user_b"))

		_, err := feed.Likers(context.Background(), "p1")
		assertCode(t, err, models.CodeInternal)
	})

	t.Run("no likes skips lookup", func(t *testing.T) {
		t.Parallel()
		bare := noopPostRepo()
		resolver := knownAuthors()
		feed := NewFeed(NewPostService(bare, allowAll(), time.Second), resolver)

		likers, err := feed.Likers(context.Background(), "p1")
		require.NoError(t, err)
		assert.Empty(t, likers)
		assert.Empty(t, resolver.calls)
	})
}
