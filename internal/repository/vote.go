package repository

import (
	"context"
	"errors"

	"ripple/internal/models"
	"ripple/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteOutcome describes what a vote transaction did.
type VoteOutcome string

const (
	// VoteCreated: first vote by this user on this post.
	VoteCreated VoteOutcome = "created"
	// VoteFlipped: an existing vote changed sign.
	VoteFlipped VoteOutcome = "flipped"
	// VoteUnchanged: a repeat of the same value; nothing written.
	VoteUnchanged VoteOutcome = "unchanged"
)

// VoteResult reports the outcome of Apply and the points delta it committed.
type VoteResult struct {
	Outcome VoteOutcome
	Value   int
	Delta   int
}

// VoteRepository defines persistence operations for votes, including the
// vote transaction that keeps Post.Points consistent with the vote rows.
type VoteRepository interface {
	// Get returns the vote for (userID, postID), or nil when absent.
	Get(ctx context.Context, userID, postID uint) (*models.Vote, error)
	// GetByKeys is the bulk fetch behind the vote batch loader. Rows come
	// back in storage order; callers map them by composite key.
	GetByKeys(ctx context.Context, keys []models.VoteKey) ([]models.Vote, error)
	// Apply records value for (userID, postID) and adjusts the post's points
	// aggregate in the same transaction. value must already be normalized to
	// Upvote or Downvote. A repeat of the current value is a no-op; a racing
	// duplicate insert is retried internally as the update path.
	Apply(ctx context.Context, userID, postID uint, value int) (*VoteResult, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Get(ctx context.Context, userID, postID uint) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &vote, nil
}

func (r *voteRepository) GetByKeys(ctx context.Context, keys []models.VoteKey) ([]models.Vote, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	tuples := make([][]interface{}, len(keys))
	for i, k := range keys {
		tuples[i] = []interface{}{k.UserID, k.PostID}
	}
	var votes []models.Vote
	if err := r.db.WithContext(ctx).
		Where("(user_id, post_id) IN ?", tuples).
		Find(&votes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return votes, nil
}

func (r *voteRepository) Apply(ctx context.Context, userID, postID uint, value int) (*VoteResult, error) {
	if value != models.Upvote && value != models.Downvote {
		return nil, models.NewValidationError("Vote value must be +1 or -1")
	}

	result, err := r.applyOnce(ctx, userID, postID, value)
	if err != nil && isUniqueConstraintError(err) {
		// Two first-votes raced; the loser's insert hit the (user_id, post_id)
		// constraint and its transaction rolled back whole. The row exists
		// now, so a second attempt takes the update path.
		observability.VoteConflictRetries.Inc()
		result, err = r.applyOnce(ctx, userID, postID, value)
	}
	if err != nil {
		return nil, err
	}

	observability.VotesApplied.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// applyOnce runs the vote state machine in a single transaction: read the
// existing row, decide the points delta, commit the aggregate adjustment and
// the vote row together or not at all.
func (r *voteRepository) applyOnce(ctx context.Context, userID, postID uint, value int) (*VoteResult, error) {
	var result VoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing := tx
		if tx.Dialector.Name() == "postgres" {
			// Lock the vote row so concurrent toggles of the same vote
			// serialize. SQLite (tests) has a single writer already.
			existing = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var vote models.Vote
		err := existing.
			Where("user_id = ? AND post_id = ?", userID, postID).
			First(&vote).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = VoteResult{Outcome: VoteCreated, Value: value, Delta: value}
		case err != nil:
			return err
		case vote.Value == value:
			// Repeat of the same vote. There is no unvote-to-neutral in this
			// model; this is a defined no-op, not an error.
			result = VoteResult{Outcome: VoteUnchanged, Value: value}
			return nil
		default:
			// Flipping a unit vote swings the aggregate by two units.
			result = VoteResult{Outcome: VoteFlipped, Value: value, Delta: 2 * value}
		}

		// The aggregate update doubles as the post existence check and takes
		// the row lock that serializes concurrent votes on the same post.
		points := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumn("points", gorm.Expr("points + ?", result.Delta))
		if points.Error != nil {
			return points.Error
		}
		if points.RowsAffected == 0 {
			return models.NewNotFoundError("Post", postID)
		}

		if result.Outcome == VoteCreated {
			return tx.Create(&models.Vote{UserID: userID, PostID: postID, Value: value}).Error
		}
		return tx.Model(&models.Vote{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Update("value", value).Error
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
