// Package seed populates a development database with plausible fake data.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"picpal/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is assigned to every seeded account.
const DefaultPassword = "password123"

const joinCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Seeder writes fake users, posts, and engagement into the database.
type Seeder struct {
	db *gorm.DB
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes all seedable data. Order matters because of foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []string{
		"likes", "comments", "group_memberships", "groups",
		"follows", "posts", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// SeedUsers creates n accounts with unique usernames and the default password.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	log.Printf("Creating %d users...", n)

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing seed password: %w", err)
	}

	users := make([]models.User, 0, n)
	seen := map[string]bool{}
	for len(users) < n {
		username := strings.ToLower(gofakeit.Username())
		if len(username) < 3 || len(username) > 30 || seen[username] {
			continue
		}
		seen[username] = true

		user := models.User{
			Username: username,
			Password: string(hash),
			Bio:      gofakeit.Quote(),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("creating user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedFollows builds a follow graph where each user follows a handful of others.
func (s *Seeder) SeedFollows(users []models.User) (int, error) {
	log.Println("Building follow graph...")

	edges := 0
	for _, follower := range users {
		count := rand.Intn(6) + 2
		for _, idx := range rand.Perm(len(users)) {
			if count == 0 {
				break
			}
			followee := users[idx]
			if followee.ID == follower.ID {
				continue
			}
			follow := models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
			if err := s.db.Create(&follow).Error; err != nil {
				return edges, fmt.Errorf("creating follow: %w", err)
			}
			edges++
			count--
		}
	}
	return edges, nil
}

// SeedPosts creates n posts spread across the given users, then sprinkles
// likes and comments on them.
func (s *Seeder) SeedPosts(users []models.User, n int) ([]models.Post, error) {
	log.Printf("Creating %d posts...", n)

	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[rand.Intn(len(users))]
		key := fmt.Sprintf("uploads/seed-%d.jpg", i)
		post := models.Post{
			UserID:     author.ID,
			Username:   author.Username,
			MediaURL:   gofakeit.ImageURL(800, 800),
			MediaKey:   key,
			PreviewURL: gofakeit.ImageURL(256, 256),
			PreviewKey: fmt.Sprintf("previews/seed-%d.webp", i),
			Caption:    gofakeit.Sentence(rand.Intn(8) + 2),
			Hashtags:   seedHashtags(),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("creating post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := s.seedEngagement(users, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(users []models.User, posts []models.Post) error {
	log.Println("Adding likes and comments...")

	for _, post := range posts {
		likers := rand.Intn(len(users)/2 + 1)
		for _, idx := range rand.Perm(len(users))[:likers] {
			like := models.Like{UserID: users[idx].ID, PostID: post.ID}
			if err := s.db.Create(&like).Error; err != nil {
				return fmt.Errorf("creating like: %w", err)
			}
		}

		for i := 0; i < rand.Intn(4); i++ {
			commenter := users[rand.Intn(len(users))]
			comment := models.Comment{
				PostID:   post.ID,
				UserID:   commenter.ID,
				Username: commenter.Username,
				Text:     gofakeit.Comment(),
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return fmt.Errorf("creating comment: %w", err)
			}
		}
	}
	return nil
}

// SeedGroups creates n groups, each owned by a random user with a few members.
func (s *Seeder) SeedGroups(users []models.User, n int) ([]models.Group, error) {
	log.Printf("Creating %d groups...", n)

	groups := make([]models.Group, 0, n)
	for i := 0; i < n; i++ {
		creator := users[rand.Intn(len(users))]
		group := models.Group{
			Name:      gofakeit.NounCollectivePeople() + " " + gofakeit.Adjective(),
			IsPrivate: rand.Intn(3) == 0,
			JoinCode:  randomJoinCode(),
			CreatedBy: creator.ID,
		}
		if err := s.db.Create(&group).Error; err != nil {
			return nil, fmt.Errorf("creating group: %w", err)
		}

		extras := rand.Intn(5) + 1
		if extras > len(users) {
			extras = len(users)
		}
		members := map[uint]bool{creator.ID: true}
		for _, idx := range rand.Perm(len(users))[:extras] {
			members[users[idx].ID] = true
		}
		for userID := range members {
			membership := models.GroupMembership{GroupID: group.ID, UserID: userID}
			if err := s.db.Create(&membership).Error; err != nil {
				return nil, fmt.Errorf("creating group membership: %w", err)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func seedHashtags() []string {
	tags := make([]string, 0, 3)
	for i := 0; i < rand.Intn(4); i++ {
		tags = append(tags, strings.ToLower(gofakeit.HipsterWord()))
	}
	return tags
}

func randomJoinCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = joinCodeCharset[rand.Intn(len(joinCodeCharset))]
	}
	return string(code)
}
