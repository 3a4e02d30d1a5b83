package loader

import (
	"context"
	"time"

	"ripple/internal/models"
	"ripple/internal/observability"
	"ripple/internal/repository"

	"github.com/gofiber/fiber/v2"
)

const (
	batchWait    = 2 * time.Millisecond
	batchMaxKeys = 100
)

// Loaders bundles the per-request loaders carried on the request context.
type Loaders struct {
	Users *Loader[uint, *models.User]
	Votes *Loader[models.VoteKey, *models.Vote]
}

// NewUserLoader builds the user-by-id loader for one request.
func NewUserLoader(ctx context.Context, repo repository.UserRepository) *Loader[uint, *models.User] {
	return New(Config[uint, *models.User]{
		Wait:     batchWait,
		MaxBatch: batchMaxKeys,
		Fetch: func(ids []uint) ([]*models.User, error) {
			observability.LoaderBatchSize.WithLabelValues("user").Observe(float64(len(ids)))
			users, err := repo.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			byID := make(map[uint]models.User, len(users))
			for _, u := range users {
				byID[u.ID] = u
			}
			out := make([]*models.User, len(ids))
			for i, id := range ids {
				if u, ok := byID[id]; ok {
					u := u
					out[i] = &u
				}
			}
			return out, nil
		},
	})
}

// NewVoteLoader builds the vote-by-(user,post) loader for one request.
func NewVoteLoader(ctx context.Context, repo repository.VoteRepository) *Loader[models.VoteKey, *models.Vote] {
	return New(Config[models.VoteKey, *models.Vote]{
		Wait:     batchWait,
		MaxBatch: batchMaxKeys,
		Fetch: func(keys []models.VoteKey) ([]*models.Vote, error) {
			observability.LoaderBatchSize.WithLabelValues("vote").Observe(float64(len(keys)))
			votes, err := repo.GetByKeys(ctx, keys)
			if err != nil {
				return nil, err
			}
			byKey := make(map[models.VoteKey]models.Vote, len(votes))
			for _, v := range votes {
				byKey[models.VoteKey{UserID: v.UserID, PostID: v.PostID}] = v
			}
			out := make([]*models.Vote, len(keys))
			for i, key := range keys {
				if v, ok := byKey[key]; ok {
					v := v
					out[i] = &v
				}
			}
			return out, nil
		},
	})
}

type ctxKeyType struct{}

var ctxKey ctxKeyType

// Middleware creates a fresh set of loaders for each inbound request and
// stores it on the request context. Loaders never outlive the request.
func Middleware(users repository.UserRepository, votes repository.VoteRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		loaders := &Loaders{
			Users: NewUserLoader(ctx, users),
			Votes: NewVoteLoader(ctx, votes),
		}
		c.SetUserContext(context.WithValue(ctx, ctxKey, loaders))
		return c.Next()
	}
}

// For returns the request's loaders, or nil when the middleware is not
// installed.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(ctxKey).(*Loaders)
	return l
}
