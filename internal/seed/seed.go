// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"ripple/internal/models"
	"ripple/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder populates the database with generated users, posts and votes.
type Seeder struct {
	db       *gorm.DB
	voteRepo repository.VoteRepository
	rng      *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:       db,
		voteRepo: repository.NewVoteRepository(db),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded data. Votes go first so the points aggregate
// never references missing rows mid-wipe.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Vote{}, &models.Post{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", model, err)
		}
	}
	return nil
}

// SeedUsers creates n users. All of them share the password "password123".
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &models.User{
			Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: string(hashedPassword),
		})
	}
	if err := s.db.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}

	log.Printf("Seeded %d users", len(users))
	return users, nil
}

// SeedPosts creates n posts with creation times spread over the past maxDays
// days so feed pages look realistic.
func (s *Seeder) SeedPosts(users []*models.User, n, maxDays int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to attribute posts to")
	}
	if maxDays <= 0 {
		maxDays = 90
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		creator := users[s.rng.Intn(len(users))]
		age := time.Duration(s.rng.Intn(maxDays))*24*time.Hour +
			time.Duration(s.rng.Intn(24))*time.Hour +
			time.Duration(s.rng.Intn(60))*time.Minute
		posts = append(posts, &models.Post{
			Title:     gofakeit.Sentence(5),
			Text:      gofakeit.Paragraph(2, 4, 8, "\n"),
			CreatorID: creator.ID,
			CreatedAt: time.Now().Add(-age),
		})
	}
	if err := s.db.Create(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}

	log.Printf("Seeded %d posts", len(posts))
	return posts, nil
}

// SeedVotes has each user vote on a random subset of posts. Votes go through
// the vote transaction so points always equals the sum of vote values.
func (s *Seeder) SeedVotes(ctx context.Context, users []*models.User, posts []*models.Post, perUser int) (int, error) {
	total := 0
	for _, user := range users {
		count := s.rng.Intn(perUser + 1)
		for _, idx := range s.rng.Perm(len(posts))[:min(count, len(posts))] {
			value := models.Upvote
			// Roughly one downvote in four
			if s.rng.Intn(4) == 0 {
				value = models.Downvote
			}
			if _, err := s.voteRepo.Apply(ctx, user.ID, posts[idx].ID, value); err != nil {
				return total, fmt.Errorf("failed to seed vote: %w", err)
			}
			total++
		}
	}

	log.Printf("Seeded %d votes", total)
	return total, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
