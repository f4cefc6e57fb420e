// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without CGo and
// cross-compiles like any other Go program.
//
// TIMESTAMPS:
// Times are stored as UTC unix milliseconds in INTEGER columns. Integer
// ordering is exact, which keeps "newest first" stable, and nothing depends
// on the driver's time formatting.
//
// CONCURRENCY:
// File databases run in WAL mode with a busy timeout, so concurrent writers
// wait for the lock instead of failing with SQLITE_BUSY. The likes table's
// UNIQUE(user_id, article_id) is the final guard against duplicate rows.
// Status changes on likes and articles are compare-and-set on the status
// column, so a writer working from a stale read matches zero rows.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/sakif/inkwell/internal/repository/sqlite/migrations"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and implements every repository
// interface in package repository.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/inkwell.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. Pinning
	// the pool to one connection keeps the whole process on the same one.
	if path == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := applyMigrations(conn, migrations.FS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, now: time.Now}, nil
}

// dsn adds the connection pragmas. modernc applies each _pragma to every new
// connection the pool opens.
func dsn(path string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return path + "?" + strings.Join(pragmas, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// SetClock replaces the time source used for created_at / updated_at.
func (db *DB) SetClock(now func() time.Time) {
	if now != nil {
		db.now = now
	}
}

func (db *DB) timestamp() time.Time {
	// Round to the stored precision so values written and read back compare equal.
	return db.now().UTC().Truncate(time.Millisecond)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure. modernc enables extended result codes on every
// connection, so NOT NULL, CHECK and FOREIGN KEY failures carry their own
// codes and are not matched here.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// uniqueViolationColumn extracts "email" from a message such as
// "UNIQUE constraint failed: users.email".
func uniqueViolationColumn(err error) string {
	msg := err.Error()
	idx := strings.LastIndex(msg, "constraint failed: ")
	if idx < 0 {
		return ""
	}
	target := msg[idx+len("constraint failed: "):]
	if end := strings.IndexAny(target, ", "); end >= 0 {
		target = target[:end]
	}
	if dot := strings.IndexByte(target, '.'); dot >= 0 {
		target = target[dot+1:]
	}
	return target
}

// nullString maps a nil pointer to SQL NULL.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
