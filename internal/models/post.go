// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content bounds for a post, counted in runes.
const (
	MinContentLength = 1
	MaxContentLength = 280
)

// Post is a single emoji message. Posts are never updated after insertion.
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID  string    `gorm:"type:varchar(191);not null;index:idx_posts_author_created,priority:1" json:"authorId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index;index:idx_posts_author_created,priority:2" json:"createdAt"`
	Likes     []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes"`
}

// BeforeCreate assigns a time-ordered id so that posts sharing a created_at
// still sort by insertion.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	p.ID = id.String()
	return nil
}
