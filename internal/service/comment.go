package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// CommentService appends comments to articles. Comments cannot be edited or
// removed by their authors.
type CommentService struct {
	articles repository.ArticleRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewCommentService(articles repository.ArticleRepository, comments repository.CommentRepository, logger *slog.Logger) *CommentService {
	return &CommentService{
		articles: articles,
		comments: comments,
		logger:   logger,
	}
}

// Create adds an active comment by caller.
func (s *CommentService) Create(ctx context.Context, caller access.Caller, articleID, content string) (*model.Comment, error) {
	article, err := loadArticle(ctx, s.articles, articleID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, article, articleID, access.CommentArticle); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "comment cannot be empty")
	}

	comment := &model.Comment{
		Content:   content,
		AuthorID:  caller.UserID,
		ArticleID: articleID,
		Status:    model.ModerationActive,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("article_id", articleID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("article_id", articleID),
	)
	return comment, nil
}

// List returns the article's active comments, newest first.
func (s *CommentService) List(ctx context.Context, caller access.Caller, articleID string) ([]model.Comment, error) {
	article, err := loadArticle(ctx, s.articles, articleID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, article, articleID, access.ListComments); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListActiveComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}
