// Package service contains the application's business logic layer.
package service

import (
	"context"

	"ripple/internal/models"
	"ripple/internal/repository"
)

const (
	maxTitleLen = 300
	maxTextLen  = 50000
)

// PostService coordinates post creation, editing and feed reads.
type PostService struct {
	postRepo repository.PostRepository
}

// CreatePostInput carries the fields for a new post.
type CreatePostInput struct {
	CreatorID uint
	Title     string
	Text      string
}

// UpdatePostInput carries an owner's edit of an existing post.
type UpdatePostInput struct {
	UserID uint
	PostID uint
	Title  string
	Text   string
}

// FeedInput is a client's page request. Cursor is the opaque token from the
// previous page, empty for the first page.
type FeedInput struct {
	Limit  int
	Cursor string
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if len(in.Text) > maxTextLen {
		return nil, models.NewValidationError("Text too long (max 50000 characters)")
	}

	post := &models.Post{
		Title:     in.Title,
		Text:      in.Text,
		CreatorID: in.CreatorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Feed returns one keyset page of the feed, newest first. The repository
// clamps the limit; a bad cursor is a validation error.
func (s *PostService) Feed(ctx context.Context, in FeedInput) (*repository.FeedPage, error) {
	var cursor *repository.FeedCursor
	if in.Cursor != "" {
		decoded, err := repository.DecodeFeedCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		cursor = decoded
	}
	return s.postRepo.ListFeed(ctx, in.Limit, cursor)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Title != "" {
		if len(in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = in.Title
	}
	if in.Text != "" {
		if len(in.Text) > maxTextLen {
			return nil, models.NewValidationError("Text too long (max 50000 characters)")
		}
		post.Text = in.Text
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.CreatorID != userID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}
