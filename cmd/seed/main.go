// Command seed fills a development database with directory accounts, emoji
// posts and likes.
package main

import (
	"context"
	"flag"
	"log"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/seed"
)

func main() {
	accounts := flag.Int("accounts", 10, "Number of generated accounts in addition to the fixtures")
	posts := flag.Int("posts", 50, "Number of posts to create")
	likes := flag.Int("likes", 5, "Maximum likes per post")
	days := flag.Int("days", 30, "Spread created_at over this many trailing days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	fixtures := flag.String("fixtures", "", "YAML accounts file (default: built-in fixtures)")
	clean := flag.Bool("clean", false, "Clean database before seeding")
	flag.Parse()

	if *accounts < 0 || *posts < 0 || *likes < 0 {
		log.Fatal("counts must not be negative")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fixtureAccounts, err := seed.LoadAccountsFile(*fixtures)
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	seeder := seed.NewSeeder(db, seed.Options{
		FakeAccounts: *accounts,
		Posts:        *posts,
		MaxLikes:     *likes,
		MaxDays:      *days,
		RandSeed:     *randSeed,
		ShouldClean:  *clean,
	})

	sum, err := seeder.Run(ctx, fixtureAccounts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d accounts, %d posts, %d likes", sum.Accounts, sum.Posts, sum.Likes)
}
