package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/markdown"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// Pagination limits for article lists.
const (
	DefaultListLimit = 10
	MaxListLimit     = 50
)

// maxWriteAttempts bounds how often Update and Delete reload after a
// concurrent writer changed the article's status under them.
const maxWriteAttempts = 3

// CreateArticleInput is the payload for ArticleService.Create. Content is
// markdown; it is rendered to HTML before it is stored.
type CreateArticleInput struct {
	Title      string  `json:"title"`
	Subtitle   *string `json:"subtitle"`
	Content    string  `json:"content"`
	Publish    bool    `json:"publish"`
	CategoryID *string `json:"categoryId"`
}

// UpdateArticleInput patches an article. Nil fields are left unchanged. An
// empty CategoryID removes the category link.
type UpdateArticleInput struct {
	Title      *string              `json:"title"`
	Subtitle   *string              `json:"subtitle"`
	Content    *string              `json:"content"`
	Status     *model.ArticleStatus `json:"status"`
	CategoryID *string              `json:"categoryId"`
}

// ArticleService runs the article lifecycle: Draft ⇄ Published → Deleted.
// Every operation loads the article first and asks access.Check before it
// writes anything.
type ArticleService struct {
	articles   repository.ArticleRepository
	categories repository.CategoryRepository
	renderer   markdown.Renderer
	logger     *slog.Logger
}

func NewArticleService(
	articles repository.ArticleRepository,
	categories repository.CategoryRepository,
	renderer markdown.Renderer,
	logger *slog.Logger,
) *ArticleService {
	return &ArticleService{
		articles:   articles,
		categories: categories,
		renderer:   renderer,
		logger:     logger,
	}
}

// Create stores a new article owned by caller, Published when in.Publish is
// set and Draft otherwise.
func (s *ArticleService) Create(ctx context.Context, caller access.Caller, in CreateArticleInput) (*model.Article, error) {
	if err := access.RequireCaller(caller); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}

	html, err := s.renderer.Render(in.Content)
	if err != nil {
		return nil, fmt.Errorf("rendering content: %w", err)
	}

	article := &model.Article{
		Title:    title,
		Subtitle: trimOptional(in.Subtitle),
		Content:  html,
		AuthorID: caller.UserID,
		Status:   model.InitialArticleStatus(in.Publish),
	}
	category, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.articles.CreateArticle(ctx, article, category); err != nil {
		s.logger.Error("failed to create article",
			slog.String("author_id", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating article: %w", err)
	}

	s.logger.Info("article created",
		slog.String("id", article.ID),
		slog.String("author_id", caller.UserID),
		slog.String("status", article.Status.String()),
	)
	return s.reload(ctx, article.ID)
}

// Get returns the article if caller may see it. Drafts of other authors and
// every deleted article are reported as not found.
func (s *ArticleService) Get(ctx context.Context, caller access.Caller, id string) (*model.Article, error) {
	article, err := loadArticle(ctx, s.articles, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, article, id, access.ReadArticle); err != nil {
		return nil, err
	}
	return withDerivedFields(article), nil
}

// Update patches the article. Only the author may update, and a deleted
// article cannot be updated at all.
//
// RACES:
// The write is a compare-and-set on the status that was loaded. If another
// request changed the status in between (a Delete, or a publish toggle) the
// article is reloaded and the checks run again, so a concurrent Delete ends
// as InvalidState here instead of being overwritten.
func (s *ArticleService) Update(ctx context.Context, caller access.Caller, id string, in UpdateArticleInput) (*model.Article, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		article, err := loadArticle(ctx, s.articles, id)
		if err != nil {
			return nil, err
		}
		if err := access.Check(caller, article, id, access.UpdateArticle); err != nil {
			return nil, err
		}

		from := article.Status
		if err := s.applyPatch(article, in); err != nil {
			return nil, err
		}
		category, err := s.resolveCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}

		ok, err := s.articles.UpdateArticle(ctx, article, from, category)
		if err != nil {
			return nil, fmt.Errorf("updating article: %w", err)
		}
		if ok {
			s.logger.Info("article updated",
				slog.String("id", id),
				slog.String("status", article.Status.String()),
			)
			return s.reload(ctx, id)
		}

		s.logger.Debug("article update retry",
			slog.String("id", id),
			slog.Int("attempt", attempt),
		)
	}
	return nil, apperror.Conflict("status", "article is being changed concurrently, please retry")
}

// applyPatch validates in and copies it onto article.
func (s *ArticleService) applyPatch(article *model.Article, in UpdateArticleInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperror.ValidationFailed("title", "title cannot be empty")
		}
		article.Title = title
	}
	if in.Subtitle != nil {
		article.Subtitle = trimOptional(in.Subtitle)
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return apperror.ValidationFailed("content", "content cannot be empty")
		}
		html, err := s.renderer.Render(*in.Content)
		if err != nil {
			return fmt.Errorf("rendering content: %w", err)
		}
		article.Content = html
	}
	if in.Status != nil {
		next := *in.Status
		if next != model.ArticlePublished && next != model.ArticleDraft {
			return apperror.ValidationFailed("status", "status must be published or draft")
		}
		if err := article.Status.CanTransition(next); err != nil {
			return err
		}
		article.Status = next
	}
	return nil
}

// Delete soft-deletes the article. Deleting twice is an InvalidState error,
// including when two deletes race: only one compare-and-set applies and the
// other reloads a Deleted article.
func (s *ArticleService) Delete(ctx context.Context, caller access.Caller, id string) error {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		article, err := loadArticle(ctx, s.articles, id)
		if err != nil {
			return err
		}
		if err := access.Check(caller, article, id, access.DeleteArticle); err != nil {
			return err
		}
		if err := article.Status.CanTransition(model.ArticleDeleted); err != nil {
			return err
		}

		ok, err := s.articles.SetArticleStatus(ctx, id, article.Status, model.ArticleDeleted)
		if err != nil {
			return fmt.Errorf("deleting article: %w", err)
		}
		if ok {
			s.logger.Info("article deleted", slog.String("id", id))
			return nil
		}

		s.logger.Debug("article delete retry",
			slog.String("id", id),
			slog.Int("attempt", attempt),
		)
	}
	return apperror.Conflict("status", "article is being changed concurrently, please retry")
}

// List returns one page of published articles, newest first.
//
// PAGINATION:
// page < 1 becomes 1. limit 0 means DefaultListLimit; anything else is
// clamped to [1, MaxListLimit].
func (s *ArticleService) List(ctx context.Context, page, limit int) (*model.ArticlePage, error) {
	page, limit = normalizePage(page, limit)

	articles, total, err := s.articles.ListPublished(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	for i := range articles {
		withDerivedFields(&articles[i])
	}

	return &model.ArticlePage{
		Items: articles,
		Pagination: model.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// loadArticle returns (nil, nil) for a missing article so access.Check produces
// the NotFound error in one place.
func loadArticle(ctx context.Context, articles repository.ArticleRepository, id string) (*model.Article, error) {
	article, err := articles.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading article: %w", err)
	}
	return article, nil
}

func (s *ArticleService) reload(ctx context.Context, id string) (*model.Article, error) {
	article, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reloading article: %w", err)
	}
	return withDerivedFields(article), nil
}

// resolveCategory turns the requested category into the link to write: nil
// leaves the link alone, "" removes it. Unknown or inactive IDs are ignored
// and resolve to nil.
func (s *ArticleService) resolveCategory(ctx context.Context, categoryID *string) (*string, error) {
	if categoryID == nil {
		return nil, nil
	}
	id := strings.TrimSpace(*categoryID)
	if id == "" {
		return &id, nil
	}
	if _, err := s.categories.GetActiveCategory(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Debug("ignoring unknown category", slog.String("category_id", id))
			return nil, nil
		}
		return nil, fmt.Errorf("loading category: %w", err)
	}
	return &id, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultListLimit
	case limit < 1:
		limit = 1
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return page, limit
}

func withDerivedFields(a *model.Article) *model.Article {
	a.Excerpt = markdown.Excerpt(a.Content, markdown.ExcerptLength)
	a.ReadTimeMinutes = markdown.ReadTimeMinutes(a.Content)
	return a
}

// trimOptional trims s and maps an empty result to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
