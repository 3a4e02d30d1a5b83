// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered Ripple account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Email     string    `gorm:"unique;not null" json:"email,omitempty"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `gorm:"foreignKey:CreatorID" json:"posts,omitempty"`
}

// Sanitized returns a copy safe to show to other users. Email addresses are
// only ever serialized on the owner's own record.
func (u User) Sanitized(viewerID uint) User {
	if u.ID != viewerID {
		u.Email = ""
	}
	u.Posts = nil
	return u
}
