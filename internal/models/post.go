package models

import (
	"time"
)

// snippetLen is the number of characters of post text surfaced in feed rows.
const snippetLen = 50

// Post is a user-submitted entry in the feed.
//
// Points is a running aggregate maintained exclusively by the vote
// transaction (see repository.VoteRepository.Apply); nothing else may write
// it. The invariant is points == sum(value) over all Vote rows for the post.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Text      string    `gorm:"not null" json:"text"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	CreatorID uint      `gorm:"not null;index" json:"creator_id"`
	Creator   User      `gorm:"foreignKey:CreatorID" json:"-"`
	CreatedAt time.Time `gorm:"index:idx_posts_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snippet returns the leading slice of the post text for feed rendering.
func (p *Post) Snippet() string {
	runes := []rune(p.Text)
	if len(runes) <= snippetLen {
		return p.Text
	}
	return string(runes[:snippetLen])
}
