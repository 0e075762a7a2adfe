// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"chirp/internal/identity"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const fallbackEmoji = "\U0001F426"

//go:embed fixtures/accounts.yml
var defaultAccounts []byte

// Options configuration for the seeder
type Options struct {
	// FakeAccounts are generated in addition to the fixture accounts.
	FakeAccounts int
	Posts        int
	// MaxLikes bounds the likes each post receives.
	MaxLikes int
	// MaxDays spreads created_at over the trailing window.
	MaxDays int
	// RandSeed makes a run reproducible; zero picks a time-based seed.
	RandSeed    int64
	ShouldClean bool
}

// Summary reports what a run created.
type Summary struct {
	Accounts int
	Posts    int
	Likes    int
}

// Seeder fills the directory and the post/like tables with demo data.
// Posts are written through the repository, bypassing the rate limiter.
type Seeder struct {
	db        *gorm.DB
	directory *identity.DirectoryProvider
	posts     repository.PostRepository
	faker     *gofakeit.Faker
	opts      Options
	now       func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Seeder{
		db:        db,
		directory: identity.NewDirectoryProvider(db),
		posts:     repository.NewPostRepository(db),
		faker:     gofakeit.New(seed),
		opts:      opts,
		now:       time.Now,
	}
}

type accountsFile struct {
	Accounts []models.Account `yaml:"accounts"`
}

// LoadAccounts decodes a YAML accounts fixture. Unknown keys are rejected.
func LoadAccounts(r io.Reader) ([]models.Account, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file accountsFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	for i, a := range file.Accounts {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("account %d: id is required", i)
		}
		if _, err := validation.Email(a.PrimaryEmail); err != nil {
			return nil, fmt.Errorf("account %s: invalid email %q", a.ID, a.PrimaryEmail)
		}
	}
	return file.Accounts, nil
}

// LoadAccountsFile reads fixtures from path, or the built-in set when path is empty.
func LoadAccountsFile(path string) ([]models.Account, error) {
	if path == "" {
		return LoadAccounts(bytes.NewReader(defaultAccounts))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadAccounts(f)
}

// ClearAll removes every post, like and directory account.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Like{}, &models.Post{}, &models.Account{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run seeds fixtures plus generated data.
func (s *Seeder) Run(ctx context.Context, fixtures []models.Account) (Summary, error) {
	var sum Summary
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	accounts, err := s.Accounts(ctx, fixtures)
	if err != nil {
		return sum, err
	}
	sum.Accounts = len(accounts)

	posts, err := s.Posts(ctx, accounts)
	if err != nil {
		return sum, err
	}
	sum.Posts = len(posts)

	likes, err := s.Likes(ctx, posts, accounts)
	if err != nil {
		return sum, err
	}
	sum.Likes = likes

	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		slog.Int("accounts", sum.Accounts),
		slog.Int("posts", sum.Posts),
		slog.Int("likes", sum.Likes),
	)
	return sum, nil
}

// Accounts upserts fixtures and generates the configured number of fake accounts.
func (s *Seeder) Accounts(ctx context.Context, fixtures []models.Account) ([]models.Account, error) {
	accounts := make([]models.Account, 0, len(fixtures)+s.opts.FakeAccounts)
	accounts = append(accounts, fixtures...)
	for i := 0; i < s.opts.FakeAccounts; i++ {
		accounts = append(accounts, s.fakeAccount())
	}

	for i := range accounts {
		if err := s.directory.Upsert(ctx, &accounts[i]); err != nil {
			return nil, fmt.Errorf("upsert account %s: %w", accounts[i].ID, err)
		}
	}
	return accounts, nil
}

func (s *Seeder) fakeAccount() models.Account {
	account := models.Account{
		ID:           "user_" + strings.ReplaceAll(s.faker.UUID(), "-", "")[:24],
		PrimaryEmail: s.faker.Email(),
		ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/200/200", s.faker.UUID()),
	}
	// about half the users never picked a username
	if s.faker.Bool() {
		name := strings.ToLower(s.faker.Username()) + fmt.Sprintf("%d", s.faker.Number(10, 99))
		account.Username = &name
	}
	return account
}

// Posts creates Options.Posts posts by random authors with created_at spread
// over the last MaxDays days.
func (s *Seeder) Posts(ctx context.Context, authors []models.Account) ([]*models.Post, error) {
	if len(authors) == 0 || s.opts.Posts <= 0 {
		return nil, nil
	}
	window := time.Duration(s.opts.MaxDays) * 24 * time.Hour
	posts := make([]*models.Post, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		author := authors[s.faker.Number(0, len(authors)-1)]
		offset := time.Duration(s.faker.Int64()%int64(window)).Abs()
		post := &models.Post{
			AuthorID:  author.ID,
			Content:   s.EmojiContent(),
			CreatedAt: s.now().Add(-offset).UTC(),
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Likes has random accounts like each post, at most MaxLikes per post.
func (s *Seeder) Likes(ctx context.Context, posts []*models.Post, users []models.Account) (int, error) {
	if s.opts.MaxLikes <= 0 || len(users) == 0 {
		return 0, nil
	}
	total := 0
	for _, post := range posts {
		n := s.faker.Number(0, min(s.opts.MaxLikes, len(users)))
		for _, idx := range s.faker.Rand.Perm(len(users))[:n] {
			if err := s.posts.Like(ctx, post.ID, users[idx].ID); err != nil {
				return total, fmt.Errorf("like post %s: %w", post.ID, err)
			}
			total++
		}
	}
	return total, nil
}

// EmojiContent returns one to six emoji that pass content validation.
func (s *Seeder) EmojiContent() string {
	n := s.faker.Number(1, 6)
	var b strings.Builder
	for attempts := 0; n > 0 && attempts < 100; attempts++ {
		e := s.faker.Emoji()
		if !validation.IsEmojiOnly(e) {
			continue
		}
		b.WriteString(e)
		n--
	}
	if b.Len() == 0 {
		return fallbackEmoji
	}
	return b.String()
}
