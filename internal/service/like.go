package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// maxToggleAttempts bounds the retry loop when concurrent toggles by the
// same user keep invalidating each other's compare-and-set.
const maxToggleAttempts = 5

// LikeService toggles likes. There is at most one like row per (user,
// article); toggling flips its status instead of inserting or deleting.
type LikeService struct {
	articles repository.ArticleRepository
	likes    repository.LikeRepository
	logger   *slog.Logger
}

func NewLikeService(articles repository.ArticleRepository, likes repository.LikeRepository, logger *slog.Logger) *LikeService {
	return &LikeService{
		articles: articles,
		likes:    likes,
		logger:   logger,
	}
}

// Toggle flips the caller's like on the article and returns the new state
// with a like count read back from storage.
//
// RACES:
// Two requests from the same user can interleave. The first insert wins
// the UNIQUE(user_id, article_id) constraint; the loser re-reads and flips
// the existing row. Flips are compare-and-set on the old status, so of two
// concurrent flips exactly one applies and the other re-reads and flips
// again. Every request therefore lands exactly one transition.
func (s *LikeService) Toggle(ctx context.Context, caller access.Caller, articleID string) (*model.LikeState, error) {
	article, err := loadArticle(ctx, s.articles, articleID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, article, articleID, access.LikeArticle); err != nil {
		return nil, err
	}

	liked, err := s.flip(ctx, caller.UserID, articleID)
	if err != nil {
		return nil, err
	}

	count, err := s.likes.CountActiveLikes(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	s.logger.Info("like toggled",
		slog.String("article_id", articleID),
		slog.String("user_id", caller.UserID),
		slog.Bool("liked", liked),
	)
	return &model.LikeState{IsLiked: liked, LikeCount: count}, nil
}

func (s *LikeService) flip(ctx context.Context, userID, articleID string) (bool, error) {
	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		existing, err := s.likes.GetLike(ctx, userID, articleID)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			like := &model.Like{UserID: userID, ArticleID: articleID, Status: model.ModerationActive}
			err := s.likes.CreateLike(ctx, like)
			if err == nil {
				return true, nil
			}
			if !errors.Is(err, apperror.ErrConflict) {
				return false, fmt.Errorf("creating like: %w", err)
			}
			// Lost the insert race: the row exists now, flip it instead.

		case err != nil:
			return false, fmt.Errorf("loading like: %w", err)

		default:
			next := existing.Status.Toggled()
			ok, err := s.likes.SetLikeStatus(ctx, existing.ID, existing.Status, next)
			if err != nil {
				return false, fmt.Errorf("updating like: %w", err)
			}
			if ok {
				return next.IsActive(), nil
			}
		}

		s.logger.Debug("like toggle retry",
			slog.String("article_id", articleID),
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}
	return false, apperror.Conflict("like", "too many concurrent updates, please retry")
}

// Status reports the live like count and whether caller currently likes the
// article. Anonymous callers always see IsLiked=false.
func (s *LikeService) Status(ctx context.Context, caller access.Caller, articleID string) (*model.LikeState, error) {
	article, err := loadArticle(ctx, s.articles, articleID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, article, articleID, access.ViewLikes); err != nil {
		return nil, err
	}

	count, err := s.likes.CountActiveLikes(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("counting likes: %w", err)
	}

	state := &model.LikeState{LikeCount: count}
	if !caller.Authenticated() {
		return state, nil
	}

	like, err := s.likes.GetLike(ctx, caller.UserID, articleID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("loading like: %w", err)
	default:
		state.IsLiked = like.Status.IsActive()
	}
	return state, nil
}
