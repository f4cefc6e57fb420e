package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var _ repository.ArticleRepository = (*DB)(nil)

// articleSelect is the read model: the article row, its author summary, its
// active category (if any) and the live count of active likes.
const articleSelect = `
	SELECT a.id, a.title, a.subtitle, a.content, a.author_id, a.status,
	       a.created_at, a.updated_at,
	       u.name, u.username,
	       c.id, c.name,
	       (SELECT COUNT(*) FROM likes l WHERE l.article_id = a.id AND l.status = 1)
	FROM articles a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN article_categories ac ON ac.article_id = a.id AND ac.status = 1
	LEFT JOIN categories c ON c.id = ac.category_id AND c.status = 1`

// CreateArticle inserts a new article, filling ID and timestamps. A non-empty
// categoryID is linked in the same transaction.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article, categoryID *string) error {
	if !article.Status.Valid() {
		return fmt.Errorf("sqlite: article status %d is not valid", int(article.Status))
	}

	now := db.timestamp()
	id := xid.New().String()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO articles (id, title, subtitle, content, author_id, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			article.Title,
			nullString(article.Subtitle),
			article.Content,
			article.AuthorID,
			int(article.Status),
			toMillis(now),
			toMillis(now),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting article: %w", err)
		}
		if categoryID == nil || *categoryID == "" {
			return nil
		}
		return linkCategory(ctx, tx, id, *categoryID)
	})
	if err != nil {
		return err
	}

	article.ID = id
	article.CreatedAt = now
	article.UpdatedAt = now
	return nil
}

// GetArticle retrieves an article in any status.
// Returns apperror.ErrNotFound if no article exists with that ID.
func (db *DB) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := db.conn.QueryRowContext(ctx, articleSelect+` WHERE a.id = ?`, id)

	article, err := scanArticle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("article", id)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return article, nil
}

// UpdateArticle writes the mutable columns and bumps updated_at, guarded by
// the status the caller loaded. The category change, if any, commits or
// rolls back with it.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article, from model.ArticleStatus, categoryID *string) (bool, error) {
	if !article.Status.Valid() {
		return false, fmt.Errorf("sqlite: article status %d is not valid", int(article.Status))
	}
	now := db.timestamp()

	var updated bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE articles SET title = ?, subtitle = ?, content = ?, status = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			article.Title,
			nullString(article.Subtitle),
			article.Content,
			int(article.Status),
			toMillis(now),
			article.ID,
			int(from),
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating article %s: %w", article.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 || categoryID == nil {
			updated = n > 0
			return nil
		}
		if err := linkCategory(ctx, tx, article.ID, *categoryID); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if updated {
		article.UpdatedAt = now
	}
	return updated, nil
}

// SetArticleStatus is a compare-and-set on the status column.
func (db *DB) SetArticleStatus(ctx context.Context, id string, from, to model.ArticleStatus) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("sqlite: article status %d is not valid", int(to))
	}
	result, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		int(to), toMillis(db.timestamp()), id, int(from),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: setting status of article %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

// ListPublished returns a page of published articles, newest first, and the
// total number of published articles.
//
// PAGINATION:
// LIMIT/OFFSET is fine at this scale. The id tie-break keeps the order total
// when two articles share a millisecond.
func (db *DB) ListPublished(ctx context.Context, opts repository.ListOptions) ([]model.Article, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE status = ?`, int(model.ArticlePublished),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting published articles: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	articles, err := db.queryArticles(ctx,
		articleSelect+` WHERE a.status = ? ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`,
		int(model.ArticlePublished), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing published articles: %w", err)
	}
	return articles, total, nil
}

// ListByAuthor returns the author's articles whose status is one of statuses.
func (db *DB) ListByAuthor(ctx context.Context, authorID string, statuses []model.ArticleStatus) ([]model.Article, error) {
	if len(statuses) == 0 {
		return []model.Article{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, 0, len(statuses)+1)
	args = append(args, authorID)
	for i, s := range statuses {
		placeholders[i] = "?"
		args = append(args, int(s))
	}

	articles, err := db.queryArticles(ctx,
		articleSelect+` WHERE a.author_id = ? AND a.status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY a.created_at DESC, a.id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles of author %s: %w", authorID, err)
	}
	return articles, nil
}

func (db *DB) queryArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Initialise to empty so callers serialise [] rather than null.
	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(s rowScanner) (*model.Article, error) {
	var (
		a                    model.Article
		subtitle             sql.NullString
		status               int
		createdAt, updatedAt int64
		authorName, handle   string
		categoryID, catName  sql.NullString
	)
	err := s.Scan(
		&a.ID,
		&a.Title,
		&subtitle,
		&a.Content,
		&a.AuthorID,
		&status,
		&createdAt,
		&updatedAt,
		&authorName,
		&handle,
		&categoryID,
		&catName,
		&a.LikeCount,
	)
	if err != nil {
		return nil, err
	}

	a.Status = model.ArticleStatus(status)
	if !a.Status.Valid() {
		return nil, fmt.Errorf("article %s has unknown status %d", a.ID, status)
	}
	a.Subtitle = stringPtr(subtitle)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	a.Author = &model.Author{ID: a.AuthorID, Name: authorName, Username: handle}
	if categoryID.Valid {
		a.Category = &model.Category{ID: categoryID.String, Name: catName.String, Status: model.StatusActive}
	}
	return &a, nil
}
