package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

var (
	_ repository.CommentRepository = (*DB)(nil)
	_ repository.LikeRepository    = (*DB)(nil)
)

// CreateComment inserts an active comment and fills AuthorName.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = db.timestamp()
	if comment.Status == 0 {
		comment.Status = model.ModerationActive
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, content, author_id, article_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Content,
		comment.AuthorID,
		comment.ArticleID,
		int(comment.Status),
		toMillis(comment.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT name FROM users WHERE id = ?`, comment.AuthorID,
	).Scan(&comment.AuthorName)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: reading comment author %s: %w", comment.AuthorID, err)
	}
	return nil
}

// ListActiveComments returns the article's active comments, newest first.
func (db *DB) ListActiveComments(ctx context.Context, articleID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.content, c.author_id, c.article_id, c.status, c.created_at, u.name
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.article_id = ? AND c.status = ?
		 ORDER BY c.created_at DESC, c.id DESC`,
		articleID, int(model.ModerationActive),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of article %s: %w", articleID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			c         model.Comment
			status    int
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Content, &c.AuthorID, &c.ArticleID, &status, &createdAt, &c.AuthorName); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		c.Status = model.ModerationStatus(status)
		c.CreatedAt = fromMillis(createdAt)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

// GetLike returns the like row for the pair, or ErrNotFound.
func (db *DB) GetLike(ctx context.Context, userID, articleID string) (*model.Like, error) {
	var (
		l                    model.Like
		status               int
		createdAt, updatedAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, article_id, status, created_at, updated_at
		 FROM likes WHERE user_id = ? AND article_id = ?`,
		userID, articleID,
	).Scan(&l.ID, &l.UserID, &l.ArticleID, &status, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("like", userID+"/"+articleID)
		}
		return nil, fmt.Errorf("sqlite: getting like: %w", err)
	}

	l.Status = model.ModerationStatus(status)
	if !l.Status.Valid() {
		return nil, fmt.Errorf("sqlite: like %s has unknown status %d", l.ID, status)
	}
	l.CreatedAt = fromMillis(createdAt)
	l.UpdatedAt = fromMillis(updatedAt)
	return &l, nil
}

// CreateLike inserts the row for a pair that has never been liked. Losing an
// insert race to another request for the same pair returns ErrConflict.
func (db *DB) CreateLike(ctx context.Context, like *model.Like) error {
	now := db.timestamp()
	like.ID = xid.New().String()
	like.CreatedAt = now
	like.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO likes (id, user_id, article_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		like.ID,
		like.UserID,
		like.ArticleID,
		int(like.Status),
		toMillis(like.CreatedAt),
		toMillis(like.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("like", "like already exists")
		}
		return fmt.Errorf("sqlite: inserting like: %w", err)
	}
	return nil
}

// SetLikeStatus is a compare-and-set: the row only changes if it still holds
// `from`. The boolean is false when another writer got there first.
func (db *DB) SetLikeStatus(ctx context.Context, id string, from, to model.ModerationStatus) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE likes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		int(to), toMillis(db.timestamp()), id, int(from),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating like %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (db *DB) CountActiveLikes(ctx context.Context, articleID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE article_id = ? AND status = ?`,
		articleID, int(model.ModerationActive),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting likes of article %s: %w", articleID, err)
	}
	return n, nil
}
