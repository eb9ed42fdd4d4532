package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
)

const notificationColumns = `id, user_id, title, message, type, priority, is_read, data, action, expires_at, created_at`

func scanNotification(s scanner) (*model.Notification, error) {
	var (
		n      model.Notification
		data   string
		action string
	)
	err := s.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Priority, &n.Read,
		&data, &action, &n.ExpiresAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(data, &n.Data); err != nil {
		return nil, fmt.Errorf("decoding notification data: %w", err)
	}
	if err := decodeJSON(action, &n.Action); err != nil {
		return nil, fmt.Errorf("decoding notification action: %w", err)
	}
	return &n, nil
}

// CreateNotification fills in the defaults (medium priority, info type,
// 30-day expiry) and inserts n.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	now := db.now()
	n.ID = xid.New().String()
	n.CreatedAt = now
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = now.Add(model.NotificationTTL)
	}
	n.ExpiresAt = n.ExpiresAt.UTC()
	if n.Type == "" {
		n.Type = model.NotifyInfo
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}

	data, err := encodeJSON(n.Data, "{}")
	if err != nil {
		return fmt.Errorf("sqlite: encoding notification data: %w", err)
	}
	action, err := encodeJSON(n.Action, "{}")
	if err != nil {
		return fmt.Errorf("sqlite: encoding notification action: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.Priority, n.Read, data, action, n.ExpiresAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns up to limit unexpired notifications, newest first.
// Expiry is checked here rather than in SQL so the comparison does not depend
// on how the driver formats timestamps.
func (db *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications: %w", err)
	}
	defer rows.Close()

	now := db.now()
	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		if n.Expired(now) {
			continue
		}
		out = append(out, *n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead only touches notifications owned by userID; anyone
// else's id is reported as not found.
func (db *DB) MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marking notification %s read: %w", id, err)
	}
	if err := checkAffected(res, apperror.NotFound("notification", id)); err != nil {
		return nil, err
	}

	n, err := scanNotification(db.conn.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading notification %s: %w", id, err)
	}
	return n, nil
}

func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: marking notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return int(n), nil
}

func (db *DB) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT expires_at FROM notifications WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	defer rows.Close()

	now := db.now()
	count := 0
	for rows.Next() {
		var expires time.Time
		if err := rows.Scan(&expires); err != nil {
			return 0, fmt.Errorf("sqlite: scanning notification expiry: %w", err)
		}
		if now.Before(expires) {
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sqlite: iterating notifications: %w", err)
	}
	return count, nil
}

func (db *DB) DeleteNotification(ctx context.Context, id, userID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting notification %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("notification", id))
}
