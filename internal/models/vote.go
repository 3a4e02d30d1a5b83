package models

import (
	"time"
)

// Vote values. A vote is always up or down; there is no neutral row.
const (
	Upvote   = 1
	Downvote = -1
)

// NormalizeVoteValue maps arbitrary client input onto a valid vote value.
// Anything that is not exactly -1 counts as an upvote. This mirrors the
// product's behavior and is deliberate; do not tighten it to a validation
// error.
func NormalizeVoteValue(raw int) int {
	if raw == Downvote {
		return Downvote
	}
	return Upvote
}

// Vote records a single user's vote on a single post. The composite primary
// key (user_id, post_id) doubles as the uniqueness constraint: at most one
// row per pair, value flipped in place on re-vote.
type Vote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// VoteKey identifies a vote row by its composite key. Used as the batch
// loader key for per-viewer vote lookups.
type VoteKey struct {
	UserID uint
	PostID uint
}
