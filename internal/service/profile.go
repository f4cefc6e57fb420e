package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// ProfileService serves public user profiles.
type ProfileService struct {
	users    repository.UserRepository
	articles repository.ArticleRepository
	logger   *slog.Logger
}

func NewProfileService(users repository.UserRepository, articles repository.ArticleRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:    users,
		articles: articles,
		logger:   logger,
	}
}

// Get looks the user up by username, falling back to ID, and returns their
// profile with their articles newest first. Everyone sees published
// articles; the owner also sees drafts. Inactive users are not found.
func (s *ProfileService) Get(ctx context.Context, caller access.Caller, handle string) (*model.ProfilePage, error) {
	handle = strings.TrimSpace(handle)
	user, err := s.lookup(ctx, handle)
	if err != nil {
		return nil, err
	}

	own := caller.Authenticated() && caller.UserID == user.ID
	statuses := []model.ArticleStatus{model.ArticlePublished}
	if own {
		statuses = append(statuses, model.ArticleDraft)
	}

	articles, err := s.articles.ListByAuthor(ctx, user.ID, statuses)
	if err != nil {
		return nil, fmt.Errorf("listing profile articles: %w", err)
	}
	for i := range articles {
		withDerivedFields(&articles[i])
	}

	// Following is not implemented; counts stay at zero.
	const followers, following = 0, 0

	return &model.ProfilePage{
		User: model.Profile{
			ID:                user.ID,
			Name:              user.Name,
			Username:          user.Username,
			Bio:               user.Bio,
			FollowersCount:    FormatCount(followers),
			FollowersCountRaw: followers,
			FollowingCount:    FormatCount(following),
			FollowingCountRaw: following,
			IsOwnProfile:      own,
		},
		Articles: articles,
	}, nil
}

func (s *ProfileService) lookup(ctx context.Context, handle string) (*model.User, error) {
	if handle == "" {
		return nil, apperror.NotFound("user", handle)
	}

	user, err := s.users.GetUserByUsername(ctx, strings.ToLower(handle))
	if errors.Is(err, apperror.ErrNotFound) {
		user, err = s.users.GetUserByID(ctx, handle)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", handle)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user.Status != model.StatusActive {
		return nil, apperror.NotFound("user", handle)
	}
	return user, nil
}

// FormatCount renders counts of 1000 or more as thousands with one
// decimal, dropping a trailing ".0": 999 → "999", 1200 → "1.2K", 3000 → "3K".
func FormatCount(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}
	s := strconv.FormatFloat(float64(n)/1000, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "K"
}
