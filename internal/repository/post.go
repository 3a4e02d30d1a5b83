package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/observability"

	"gorm.io/gorm"
)

// maxFeedLimit caps a single feed page regardless of what the client asks
// for, protecting the store from unbounded scans.
const maxFeedLimit = 50

// FeedCursor is the decoded keyset position of the last row of a previous
// page. Ordering is (created_at DESC, id DESC); id breaks creation-time ties
// so the cursor is strictly deterministic.
type FeedCursor struct {
	CreatedAt time.Time
	ID        uint
}

// Encode renders the cursor as an opaque token safe to hand to clients.
// Nanosecond precision so the equality arm of the keyset predicate matches
// the stored timestamp exactly.
func (c FeedCursor) Encode() string {
	raw := fmt.Sprintf("%d.%d", c.CreatedAt.UnixNano(), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeFeedCursor parses a cursor token produced by Encode. A malformed
// token is a validation error, not a server fault.
func DecodeFeedCursor(token string) (*FeedCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	nanos, idStr, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, models.NewValidationError("Invalid cursor")
	}
	nsec, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	return &FeedCursor{CreatedAt: time.Unix(0, nsec), ID: uint(id)}, nil
}

// FeedPage is one cursor-bounded slice of the feed.
type FeedPage struct {
	Posts   []*models.Post
	HasMore bool
}

// NextCursor returns the cursor for the page after this one, or "" when this
// is the last page.
func (p *FeedPage) NextCursor() string {
	if !p.HasMore || len(p.Posts) == 0 {
		return ""
	}
	last := p.Posts[len(p.Posts)-1]
	return FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// ListFeed returns one keyset page, newest first. limit is clamped to
	// maxFeedLimit; a nil cursor means the first page.
	ListFeed(ctx context.Context, limit int, cursor *FeedCursor) (*FeedPage, error)
	Update(ctx context.Context, post *models.Post) error
	// Delete removes a post and its dependent vote rows as one atomic unit.
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListFeed(ctx context.Context, limit int, cursor *FeedCursor) (*FeedPage, error) {
	start := time.Now()

	if limit < 1 {
		limit = 1
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	q := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		// Strictly before the cursor position in (created_at, id) order.
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var posts []*models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	// Over-fetch by one: the extra row only signals that another page exists.
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	observability.FeedPageLatency.Observe(time.Since(start).Seconds())
	return &FeedPage{Posts: posts, HasMore: hasMore}, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Votes go with the post so the points invariant cannot dangle.
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}
