// Command seed populates the database with fake data for development.
package main

import (
	"flag"
	"log"

	"picpal/internal/config"
	"picpal/internal/database"
	"picpal/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	numGroups := flag.Int("groups", 10, "Number of groups to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	users, err := s.SeedUsers(*numUsers)
	if err != nil {
		log.Fatalf("User seeding failed: %v", err)
	}
	edges, err := s.SeedFollows(users)
	if err != nil {
		log.Fatalf("Follow seeding failed: %v", err)
	}
	posts, err := s.SeedPosts(users, *numPosts)
	if err != nil {
		log.Fatalf("Post seeding failed: %v", err)
	}
	groups, err := s.SeedGroups(users, *numGroups)
	if err != nil {
		log.Fatalf("Group seeding failed: %v", err)
	}

	log.Printf("Done: %d users, %d follows, %d posts, %d groups.",
		len(users), edges, len(posts), len(groups))
	log.Printf("All seeded accounts use the password %q.", seed.DefaultPassword)
}
