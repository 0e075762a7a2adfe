package models

import "time"

// Account is a user record of the built-in directory identity provider.
// The post/like core never reads it directly; it goes through the identity
// adapter like any other provider record.
type Account struct {
	ID           string    `gorm:"primaryKey;type:varchar(191)" json:"id" yaml:"id"`
	Username     *string   `gorm:"type:varchar(64)" json:"username,omitempty" yaml:"username"`
	PrimaryEmail string    `gorm:"type:varchar(320);not null;uniqueIndex" json:"primaryEmail" yaml:"email"`
	ImageURL     string    `gorm:"type:text" json:"imageUrl" yaml:"image_url"`
	CreatedAt    time.Time `json:"createdAt" yaml:"-"`
}
