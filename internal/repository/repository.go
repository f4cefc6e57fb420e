// Package repository declares the storage contracts the services depend on.
//
// One concrete type (sqlite.DB) implements all of them, so method names are
// prefixed by entity to keep them distinct.
package repository

import (
	"context"

	"github.com/sakif/inkwell/internal/model"
)

// ListOptions pages through a result set.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores accounts. Email and username arguments are expected
// already normalised by the caller.
type UserRepository interface {
	// CreateUser inserts u, filling ID and timestamps. A unique violation is
	// reported as apperror.ErrConflict with Field set to "email" or "username".
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// EmailTaken and UsernameTaken ignore the row whose ID is excludeID.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	UpdateUserProfile(ctx context.Context, u *model.User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// ArticleRepository stores articles. Read methods return the full read
// model: author summary, active category and live like count.
//
// CATEGORY LINKS:
// Writes take an optional category ID that is applied in the same
// transaction as the article row. nil leaves the link alone and "" removes
// it. A failed link rolls the whole write back.
type ArticleRepository interface {
	// CreateArticle inserts a, filling ID and timestamps.
	CreateArticle(ctx context.Context, a *model.Article, categoryID *string) error
	// GetArticle returns the article in any status, or ErrNotFound.
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	// UpdateArticle writes title, subtitle, content and status, but only
	// while the stored status is still from. false means the row is missing
	// or another writer changed its status first; nothing was written.
	UpdateArticle(ctx context.Context, a *model.Article, from model.ArticleStatus, categoryID *string) (bool, error)
	// SetArticleStatus moves the article from `from` to `to` and reports
	// whether it did, like LikeRepository.SetLikeStatus.
	SetArticleStatus(ctx context.Context, id string, from, to model.ArticleStatus) (bool, error)
	// ListPublished returns one page of published articles, newest first,
	// and the total number of published articles.
	ListPublished(ctx context.Context, opts ListOptions) ([]model.Article, int, error)
	// ListByAuthor returns the author's articles in the given statuses,
	// newest first.
	ListByAuthor(ctx context.Context, authorID string, statuses []model.ArticleStatus) ([]model.Article, error)
}

// CommentRepository stores comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	// ListActiveComments returns active comments on an article, newest
	// first, with AuthorName filled.
	ListActiveComments(ctx context.Context, articleID string) ([]model.Comment, error)
}

// LikeRepository stores the single like row per (user, article).
type LikeRepository interface {
	// GetLike returns ErrNotFound when the user never liked the article.
	GetLike(ctx context.Context, userID, articleID string) (*model.Like, error)
	// CreateLike inserts l. A concurrent insert for the same pair is
	// reported as ErrConflict.
	CreateLike(ctx context.Context, l *model.Like) error
	// SetLikeStatus moves the row from `from` to `to` and reports whether
	// it did. false means another writer changed the row first.
	SetLikeStatus(ctx context.Context, id string, from, to model.ModerationStatus) (bool, error)
	CountActiveLikes(ctx context.Context, articleID string) (int, error)
}

// CategoryRepository stores categories. Article links are written through
// ArticleRepository.
type CategoryRepository interface {
	ListActiveCategories(ctx context.Context) ([]model.Category, error)
	// GetActiveCategory returns ErrNotFound for unknown or inactive IDs.
	GetActiveCategory(ctx context.Context, id string) (*model.Category, error)
	// EnsureCategory returns the category with the given name, creating it
	// active when missing.
	EnsureCategory(ctx context.Context, name string) (*model.Category, error)
}
