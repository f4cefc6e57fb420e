package model

import "time"

// Article is a long-form post. Content holds rendered HTML; the markdown
// source is not kept.
//
// Author, Category and LikeCount are filled by read queries only. Excerpt and
// ReadTimeMinutes are derived from Content by the service layer.
type Article struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Subtitle  *string       `json:"subtitle"`
	Content   string        `json:"content"`
	AuthorID  string        `json:"authorId"`
	Status    ArticleStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	Author          *Author   `json:"author,omitempty"`
	Category        *Category `json:"category,omitempty"`
	LikeCount       int       `json:"likeCount"`
	Excerpt         string    `json:"excerpt"`
	ReadTimeMinutes int       `json:"readTimeMinutes"`
}

// IsOwnedBy reports whether userID authored the article. The empty ID
// (anonymous) never owns anything.
func (a *Article) IsOwnedBy(userID string) bool {
	return userID != "" && a.AuthorID == userID
}

// Pagination describes one page of a list result.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ArticlePage is a page of published articles.
type ArticlePage struct {
	Items      []Article  `json:"items"`
	Pagination Pagination `json:"pagination"`
}
