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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, name, bio, password_hash, status, created_at, updated_at`

// CreateUser inserts a new user. The UNIQUE constraints on email and
// username are the last line of defence against a registration race; a
// violation comes back as a Conflict naming the column.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.timestamp()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == 0 {
		user.Status = model.StatusActive
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		user.Bio,
		user.PasswordHash,
		int(user.Status),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			field := uniqueViolationColumn(err)
			return apperror.Conflict(field, fmt.Sprintf("%s is already taken", field))
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

// GetUserByEmail looks up by normalised email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "email", email)
}

// GetUserByUsername looks up by normalised username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row, "username", username)
}

func (db *DB) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	return db.exists(ctx, `SELECT 1 FROM users WHERE email = ? AND id <> ? LIMIT 1`, email, excludeID)
}

func (db *DB) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	return db.exists(ctx, `SELECT 1 FROM users WHERE username = ? AND id <> ? LIMIT 1`, username, excludeID)
}

func (db *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: existence check: %w", err)
	}
	return true, nil
}

// UpdateUserProfile writes name, username and bio.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = db.timestamp()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, username = ?, bio = ?, updated_at = ? WHERE id = ?`,
		user.Name,
		user.Username,
		user.Bio,
		toMillis(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username", "username is already taken")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return requireOneRow(result, "user", user.ID)
}

func (db *DB) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, toMillis(db.timestamp()), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

func scanUser(row *sql.Row, key, value string) (*model.User, error) {
	var (
		u                    model.User
		status               int
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Name,
		&u.Bio,
		&u.PasswordHash,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", key, err)
	}

	u.Status = model.Status(status)
	if !u.Status.Valid() {
		return nil, fmt.Errorf("sqlite: user %s has unknown status %d", u.ID, status)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

// requireOneRow turns "0 rows affected" into NotFound.
func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
