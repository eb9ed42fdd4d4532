package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const userColumns = `id, name, email, role, phone, address, city, ngo_registration, verified,
	github_id, avatar_url, email_verified, two_factor_enabled, password_hash, two_factor_secret,
	backup_codes, email_token_hash, email_token_expires, reset_token_hash, reset_token_expires,
	last_password_change, created_at, updated_at`

func scanUser(s scanner) (*model.User, error) {
	var (
		u           model.User
		githubID    sql.NullInt64
		backupCodes string
		emailExp    sql.NullTime
		resetExp    sql.NullTime
		lastChange  sql.NullTime
	)
	err := s.Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Phone, &u.Address, &u.City, &u.NGORegistration, &u.Verified,
		&githubID, &u.AvatarURL, &u.EmailVerified, &u.TwoFactorEnabled, &u.PasswordHash, &u.TwoFactorSecret,
		&backupCodes, &u.EmailTokenHash, &emailExp, &u.ResetTokenHash, &resetExp,
		&lastChange, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	u.EmailTokenExpires = timePtr(emailExp)
	u.ResetTokenExpires = timePtr(resetExp)
	u.LastPasswordChange = timePtr(lastChange)
	if err := decodeJSON(backupCodes, &u.BackupCodeHashes); err != nil {
		return nil, fmt.Errorf("decoding backup codes: %w", err)
	}
	return &u, nil
}

// userArgs returns the column values in userColumns order.
func userArgs(u *model.User) ([]any, error) {
	codes, err := encodeJSON(u.BackupCodeHashes, "[]")
	if err != nil {
		return nil, fmt.Errorf("encoding backup codes: %w", err)
	}
	var githubID sql.NullInt64
	if u.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: u.GitHubID, Valid: true}
	}
	return []any{
		u.ID, u.Name, u.Email, u.Role, u.Phone, u.Address, u.City, u.NGORegistration, u.Verified,
		githubID, u.AvatarURL, u.EmailVerified, u.TwoFactorEnabled, u.PasswordHash, u.TwoFactorSecret,
		codes, u.EmailTokenHash, nullTime(u.EmailTokenExpires), u.ResetTokenHash, nullTime(u.ResetTokenExpires),
		nullTime(u.LastPasswordChange), u.CreatedAt, u.UpdatedAt,
	}, nil
}

// CreateUser inserts a new user. Email is stored lower-cased so the UNIQUE
// constraint is case-insensitive; a clash is reported as a conflict.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	now := db.now()
	u.ID = xid.New().String()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now

	args, err := userArgs(u)
	if err != nil {
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "github_id") {
				return apperror.Conflict("GitHub account already linked")
			}
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}
	return nil
}

func (db *DB) getUserWhere(ctx context.Context, where string, arg any, label string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", label)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", label, err)
	}
	return u, nil
}

// GetUserByID retrieves a user by their internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id = ?", id, id)
}

// GetUserByEmail matches case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return db.getUserWhere(ctx, "email = ?", email, email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUserWhere(ctx, "github_id = ?", githubID, fmt.Sprintf("github:%d", githubID))
}

func (db *DB) GetUserByTokenHash(ctx context.Context, kind model.TokenKind, hash string) (*model.User, error) {
	if hash == "" {
		return nil, apperror.NotFound("user", "token")
	}
	column := "email_token_hash"
	if kind == model.TokenPasswordReset {
		column = "reset_token_hash"
	}
	return db.getUserWhere(ctx, column+" = ?", hash, "token")
}

// UpdateUser writes every column of u back. id and created_at never change.
func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = db.now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	args, err := userArgs(u)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
	}
	// Drop id and created_at from the front/back, then append the WHERE arg.
	setArgs := append(args[1:len(args)-2:len(args)-2], u.UpdatedAt, u.ID)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET
			name = ?, email = ?, role = ?, phone = ?, address = ?, city = ?, ngo_registration = ?, verified = ?,
			github_id = ?, avatar_url = ?, email_verified = ?, two_factor_enabled = ?, password_hash = ?,
			two_factor_secret = ?, backup_codes = ?, email_token_hash = ?, email_token_expires = ?,
			reset_token_hash = ?, reset_token_expires = ?, last_password_change = ?, updated_at = ?
		 WHERE id = ?`,
		setArgs...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User already exists")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
	}
	return checkAffected(res, apperror.NotFound("user", u.ID))
}

func (db *DB) DeleteUser(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("user", id))
}

// ListUsers returns users newest first, optionally narrowed to one role.
func (db *DB) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if filter.Role != "" {
		query += ` WHERE role = ?`
		args = append(args, filter.Role)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
