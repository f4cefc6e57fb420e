package model

import "time"

// Comment is append-only from the reader's point of view: there is no edit
// or author delete operation.
type Comment struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	AuthorID  string           `json:"authorId"`
	ArticleID string           `json:"articleId"`
	Status    ModerationStatus `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`

	AuthorName string `json:"authorName"`
}

// Like is unique per (UserID, ArticleID). The row is created once and its
// Status flips between Active (liked) and Deleted (unliked) afterwards.
type Like struct {
	ID        string
	UserID    string
	ArticleID string
	Status    ModerationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikeState is what a caller sees after toggling or reading a like.
type LikeState struct {
	IsLiked   bool `json:"isLiked"`
	LikeCount int  `json:"likeCount"`
}

// Category is a tag an article can be linked to.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"-"`
}
