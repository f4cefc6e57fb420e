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

var _ repository.CategoryRepository = (*DB)(nil)

// ListActiveCategories returns active categories in name order.
func (db *DB) ListActiveCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, status FROM categories WHERE status = ? ORDER BY name`,
		int(model.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var (
			c      model.Category
			status int
		)
		if err := rows.Scan(&c.ID, &c.Name, &status); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category: %w", err)
		}
		c.Status = model.Status(status)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

func (db *DB) GetActiveCategory(ctx context.Context, id string) (*model.Category, error) {
	c := model.Category{Status: model.StatusActive}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ? AND status = ?`,
		id, int(model.StatusActive),
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return &c, nil
}

// EnsureCategory is idempotent: INSERT OR IGNORE leaves an existing row
// (and its status) alone, then the row is read back by name.
func (db *DB) EnsureCategory(ctx context.Context, name string) (*model.Category, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (id, name, status) VALUES (?, ?, ?)`,
		xid.New().String(), name, int(model.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ensuring category %q: %w", name, err)
	}

	var (
		c      model.Category
		status int
	)
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, name, status FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &status)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading category %q: %w", name, err)
	}
	c.Status = model.Status(status)
	return &c, nil
}

// linkCategory upserts the article's single category link inside the
// caller's transaction. An empty categoryID soft-deletes the link.
func linkCategory(ctx context.Context, tx execer, articleID, categoryID string) error {
	if categoryID == "" {
		_, err := tx.ExecContext(ctx,
			`UPDATE article_categories SET status = ? WHERE article_id = ?`,
			int(model.StatusDeleted), articleID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: unlinking category of article %s: %w", articleID, err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO article_categories (article_id, category_id, status) VALUES (?, ?, ?)
		 ON CONFLICT(article_id) DO UPDATE SET category_id = excluded.category_id, status = excluded.status`,
		articleID, categoryID, int(model.StatusActive),
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking article %s to category %s: %w", articleID, categoryID, err)
	}
	return nil
}
