package models

// Author is the client-safe projection of an identity-provider user.
type Author struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// FeedItem is a post joined with its resolved author.
type FeedItem struct {
	Post   *Post  `json:"post"`
	Author Author `json:"author"`
}
