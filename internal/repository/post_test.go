package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"chirp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

// testClock drives created_at through gorm's NowFunc.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTestDB(t *testing.T) (*gorm.DB, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		NowFunc:        clock.Now,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Post{}, &models.Like{}))
	return db, clock
}

func createPost(t *testing.T, repo PostRepository, authorID string) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: authorID, Content: "\U0001F600"}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{AuthorID: "user_a", Content: "\U0001F525"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "posts" ("id","author_id","content","created_at") VALUES ($1,$2,$3,$4)`)).
		WithArgs(sqlmock.AnyArg(), "user_a", "\U0001F525", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_LikeSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "likes" ("post_id","user_id","created_at") VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`)).
		WithArgs("p1", "user_a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, repo.Like(context.Background(), "p1", "user_a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UnlikeSQL(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{"removes existing like", 1, nil},
		{"missing like", 0, gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes" WHERE post_id = $1 AND user_id = $2`)).
				WithArgs("p1", "user_a").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			err := repo.Unlike(context.Background(), "p1", "user_a")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_ListSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE author_id = $1 ORDER BY created_at DESC,id DESC LIMIT $2`)).
		WithArgs("user_a", FeedLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "content", "created_at"}))

	posts, err := repo.ListByAuthor(context.Background(), "user_a", 500)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db, clock := setupTestDB(t)
	repo := NewPostRepository(db)

	p1 := createPost(t, repo, "user_a")
	clock.Advance(time.Second)
	p2 := createPost(t, repo, "user_b")
	clock.Advance(time.Second)
	p3 := createPost(t, repo, "user_a")

	posts, err := repo.List(context.Background(), FeedLimit)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	byAuthor, err := repo.ListByAuthor(context.Background(), "user_a", FeedLimit)
	require.NoError(t, err)
	require.Len(t, byAuthor, 2)
	assert.Equal(t, p3.ID, byAuthor[0].ID)
	assert.Equal(t, p1.ID, byAuthor[1].ID)
}

func TestPostRepository_ListTiesBreakByInsertion(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewPostRepository(db)

	first := createPost(t, repo, "user_a")
	second := createPost(t, repo, "user_a")

	posts, err := repo.List(context.Background(), FeedLimit)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestPostRepository_ListIsBounded(t *testing.T) {
	db, clock := setupTestDB(t)
	repo := NewPostRepository(db)

	for i := 0; i < FeedLimit+5; i++ {
		createPost(t, repo, "user_a")
		clock.Advance(time.Millisecond)
	}

	posts, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, posts, FeedLimit)
}

func TestPostRepository_LikeUnlike(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	post := createPost(t, repo, "user_a")

	t.Run("like twice leaves one row", func(t *testing.T) {
		require.NoError(t, repo.Like(ctx, post.ID, "user_b"))
		require.NoError(t, repo.Like(ctx, post.ID, "user_b"))

		var count int64
		require.NoError(t, db.Model(&models.Like{}).Where("post_id = ? AND user_id = ?", post.ID, "user_b").Count(&count).Error)
		assert.Equal(t, int64(1), count)

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, got.Likes, 1)
		assert.Equal(t, "user_b", got.Likes[0].UserID)
	})

	t.Run("like on missing post", func(t *testing.T) {
		err := repo.Like(ctx, "no-such-post", "user_b")
		assert.True(t, errors.Is(err, gorm.ErrForeignKeyViolated), "got %v", err)
	})

	t.Run("unlike removes then reports missing", func(t *testing.T) {
		require.NoError(t, repo.Unlike(ctx, post.ID, "user_b"))
		assert.ErrorIs(t, repo.Unlike(ctx, post.ID, "user_b"), gorm.ErrRecordNotFound)
	})
}

func TestPostRepository_GetByIDMissing(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewPostRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPostRepository_DeletingPostCascadesLikes(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	post := createPost(t, repo, "user_a")
	require.NoError(t, repo.Like(ctx, post.ID, "user_b"))

	require.NoError(t, db.Delete(&models.Post{}, "id = ?", post.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.Zero(t, count)
}
