package service

import (
	"context"

	"ripple/internal/cache"
	"ripple/internal/models"
	"ripple/internal/repository"
)

// VoteService applies votes and keeps the cached post state consistent.
type VoteService struct {
	voteRepo repository.VoteRepository
	postRepo repository.PostRepository
}

// CastVoteResult is the post's state after a vote, along with what the vote
// did and the caller's recorded value.
type CastVoteResult struct {
	Post    *models.Post
	Outcome repository.VoteOutcome
	Value   int
}

// NewVoteService returns a new VoteService.
func NewVoteService(voteRepo repository.VoteRepository, postRepo repository.PostRepository) *VoteService {
	return &VoteService{voteRepo: voteRepo, postRepo: postRepo}
}

// CastVote normalizes the raw value to up or down, applies the vote
// transaction and returns the post with its updated points.
func (s *VoteService) CastVote(ctx context.Context, userID, postID uint, rawValue int) (*CastVoteResult, error) {
	value := models.NormalizeVoteValue(rawValue)

	result, err := s.voteRepo.Apply(ctx, userID, postID, value)
	if err != nil {
		return nil, err
	}

	// The cached copy holds stale points after a created or flipped vote.
	if result.Delta != 0 {
		cache.InvalidatePost(ctx, postID)
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &CastVoteResult{
		Post:    post,
		Outcome: result.Outcome,
		Value:   result.Value,
	}, nil
}
