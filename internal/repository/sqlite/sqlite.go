// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C
// toolchain and ":memory:" databases make the tests fast and isolated.
//
// ONE CONNECTION:
// The pool is capped at a single open connection. That serialises writers
// (SQLite allows one at a time anyway) and keeps ":memory:" databases alive,
// since every new connection to ":memory:" would otherwise see an empty DB.
// The price is that code holding a transaction or an open *sql.Rows must not
// touch db.conn until it is done, or it will wait forever for the connection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/clothconnect/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides every repository method.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/clothconnect.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// References between tables (donor_id, ngo_id, user_id) are plain TEXT
// columns without foreign keys: deleting a user leaves their history in
// place, which is what the analytics totals expect.
func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id                   TEXT PRIMARY KEY,
				name                 TEXT NOT NULL,
				email                TEXT NOT NULL UNIQUE,
				role                 TEXT NOT NULL DEFAULT 'donor',
				phone                TEXT NOT NULL DEFAULT '',
				address              TEXT NOT NULL DEFAULT '',
				city                 TEXT NOT NULL DEFAULT '',
				ngo_registration     TEXT NOT NULL DEFAULT '',
				verified             INTEGER NOT NULL DEFAULT 0,
				github_id            INTEGER UNIQUE,
				avatar_url           TEXT NOT NULL DEFAULT '',
				email_verified       INTEGER NOT NULL DEFAULT 0,
				two_factor_enabled   INTEGER NOT NULL DEFAULT 0,
				password_hash        TEXT NOT NULL DEFAULT '',
				two_factor_secret    TEXT NOT NULL DEFAULT '',
				backup_codes         TEXT NOT NULL DEFAULT '[]',
				email_token_hash     TEXT NOT NULL DEFAULT '',
				email_token_expires  DATETIME,
				reset_token_hash     TEXT NOT NULL DEFAULT '',
				reset_token_expires  DATETIME,
				last_password_change DATETIME,
				created_at           DATETIME NOT NULL,
				updated_at           DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_users_role ON users(role, created_at);`},
		{"donations", `
			CREATE TABLE IF NOT EXISTS donations (
				id           TEXT PRIMARY KEY,
				donor_id     TEXT NOT NULL,
				ngo_id       TEXT NOT NULL DEFAULT '',
				title        TEXT NOT NULL,
				clothes_type TEXT NOT NULL,
				quantity     INTEGER NOT NULL CHECK (quantity > 0),
				address      TEXT NOT NULL,
				city         TEXT NOT NULL,
				pincode      TEXT NOT NULL,
				phone        TEXT NOT NULL,
				pickup_date  DATETIME NOT NULL,
				message      TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL DEFAULT 'Pending',
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations(donor_id);
			CREATE INDEX IF NOT EXISTS idx_donations_created_at ON donations(created_at);`},
		{"pickups", `
			CREATE TABLE IF NOT EXISTS pickups (
				id           TEXT PRIMARY KEY,
				donor_id     TEXT NOT NULL,
				ngo_id       TEXT NOT NULL,
				title        TEXT NOT NULL,
				clothes_type TEXT NOT NULL,
				quantity     INTEGER NOT NULL CHECK (quantity > 0),
				address      TEXT NOT NULL,
				city         TEXT NOT NULL,
				pincode      TEXT NOT NULL,
				phone        TEXT NOT NULL,
				pickup_date  DATETIME NOT NULL,
				message      TEXT NOT NULL DEFAULT '',
				assigned_to  TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL DEFAULT 'Scheduled',
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_pickups_ngo ON pickups(ngo_id, status);
			CREATE INDEX IF NOT EXISTS idx_pickups_donor ON pickups(donor_id);`},
		{"collections", `
			CREATE TABLE IF NOT EXISTS collections (
				id           TEXT PRIMARY KEY,
				ngo_id       TEXT NOT NULL,
				clothes_type TEXT NOT NULL,
				quantity     INTEGER NOT NULL DEFAULT 0,
				distributed  INTEGER NOT NULL DEFAULT 0,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL,
				UNIQUE (ngo_id, clothes_type),
				CHECK (distributed >= 0 AND distributed <= quantity)
			);`},
		{"notifications", `
			CREATE TABLE IF NOT EXISTS notifications (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL,
				title      TEXT NOT NULL,
				message    TEXT NOT NULL,
				type       TEXT NOT NULL DEFAULT 'info',
				priority   TEXT NOT NULL DEFAULT 'medium',
				is_read    INTEGER NOT NULL DEFAULT 0,
				data       TEXT NOT NULL DEFAULT '{}',
				action     TEXT NOT NULL DEFAULT '{}',
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);`},
		{"audit_logs", `
			CREATE TABLE IF NOT EXISTS audit_logs (
				id            TEXT PRIMARY KEY,
				action        TEXT NOT NULL,
				resource_type TEXT NOT NULL,
				resource_id   TEXT NOT NULL,
				actor_id      TEXT NOT NULL,
				before_state  TEXT NOT NULL DEFAULT '{}',
				after_state   TEXT NOT NULL DEFAULT '{}',
				details       TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at);`},
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", s.name, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error. fn must use tx for every statement.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// encodeJSON stores maps and slices in TEXT columns.
func encodeJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// checkAffected turns a zero-row UPDATE or DELETE into err.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
