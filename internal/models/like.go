package models

import "time"

// Like is a user's like on a post. (PostID, UserID) is the primary key, so a
// pair can exist at most once.
type Like struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36);autoIncrement:false" json:"postId"`
	UserID    string    `gorm:"primaryKey;type:varchar(191);autoIncrement:false;index" json:"userId"`
	CreatedAt time.Time `json:"-"`
}

// LikeAction is the toggle direction sent by clients.
type LikeAction string

const (
	ActionLike   LikeAction = "like"
	ActionUnlike LikeAction = "unlike"
)

// Valid reports whether a is a known action.
func (a LikeAction) Valid() bool {
	return a == ActionLike || a == ActionUnlike
}
