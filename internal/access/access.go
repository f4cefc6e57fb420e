// Package access decides whether a caller may act on an article.
//
// Every decision is a pure function of (caller, article, action); nothing
// here touches storage or the request context. Services load the article,
// ask Check, and only then write.
//
// CHECK ORDER:
//  1. existence: a nil article is NotFound for everyone
//  2. authentication: mutations need a signed-in caller
//  3. ownership / visibility: non-owners get Forbidden on mutations, and
//     drafts they cannot see look exactly like missing articles
//  4. status: acting on a Deleted article is an InvalidState error
//
// Deleted articles are hidden on every read path, including the owner's own
// fetch by ID.
package access

import (
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/model"
)

// Caller is the identity performing an operation. The zero value is the
// anonymous caller.
type Caller struct {
	UserID   string
	Email    string
	Name     string
	Username string
}

// Anonymous is the caller with no session.
var Anonymous = Caller{}

// FromClaims builds a Caller from verified session claims. Nil claims give
// the anonymous caller.
func FromClaims(c *auth.Claims) Caller {
	if c == nil {
		return Anonymous
	}
	return Caller{
		UserID:   c.UserID(),
		Email:    c.Email,
		Name:     c.Name,
		Username: c.Username,
	}
}

// Authenticated reports whether the caller carries a session.
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// Action is an operation a caller wants to perform on an article.
type Action int

const (
	ReadArticle Action = iota + 1
	UpdateArticle
	DeleteArticle
	CommentArticle
	ListComments
	LikeArticle
	ViewLikes
)

func (a Action) String() string {
	switch a {
	case ReadArticle:
		return "read"
	case UpdateArticle:
		return "update"
	case DeleteArticle:
		return "delete"
	case CommentArticle:
		return "comment"
	case ListComments:
		return "list comments"
	case LikeArticle:
		return "like"
	case ViewLikes:
		return "view likes"
	}
	return "unknown"
}

// RequireCaller fails with Unauthenticated for the anonymous caller.
func RequireCaller(c Caller) error {
	if !c.Authenticated() {
		return apperror.Unauthenticated("sign in required")
	}
	return nil
}

// CanView reports whether c may see article at all. Published articles are
// public, drafts are visible to their author only, deleted articles to no one.
func CanView(c Caller, article *model.Article) bool {
	if article == nil {
		return false
	}
	switch article.Status {
	case model.ArticlePublished:
		return true
	case model.ArticleDraft:
		return article.IsOwnedBy(c.UserID)
	}
	return false
}

// Check returns nil when c may perform action on article, or an apperror
// describing why not. id is used in NotFound messages so a hidden article
// reads exactly like a missing one.
func Check(c Caller, article *model.Article, id string, action Action) error {
	if article == nil {
		return apperror.NotFound("article", id)
	}

	switch action {
	case ReadArticle, ListComments, ViewLikes:
		if !CanView(c, article) {
			return apperror.NotFound("article", id)
		}
		return nil

	case UpdateArticle, DeleteArticle:
		if err := RequireCaller(c); err != nil {
			return err
		}
		if !article.IsOwnedBy(c.UserID) {
			if action == DeleteArticle {
				return apperror.Forbidden("you can only delete your own articles")
			}
			return apperror.Forbidden("you can only edit your own articles")
		}
		if article.Status == model.ArticleDeleted {
			if action == DeleteArticle {
				return apperror.InvalidState("article is already deleted")
			}
			return apperror.InvalidState("cannot edit a deleted article")
		}
		return nil

	case CommentArticle, LikeArticle:
		if err := RequireCaller(c); err != nil {
			return err
		}
		if article.Status == model.ArticleDeleted {
			if action == LikeArticle {
				return apperror.InvalidState("cannot like a deleted article")
			}
			return apperror.InvalidState("cannot comment on a deleted article")
		}
		if !CanView(c, article) {
			return apperror.NotFound("article", id)
		}
		return nil
	}

	return apperror.Forbidden("unsupported action " + action.String())
}
