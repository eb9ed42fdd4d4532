package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const auditColumns = `id, action, resource_type, resource_id, actor_id, before_state, after_state, details, created_at`

// AppendAudit inserts an audit entry. There is no update or delete.
func (db *DB) AppendAudit(ctx context.Context, entry *model.AuditLog) error {
	return db.insertAudit(ctx, db.conn, entry)
}

func (db *DB) insertAudit(ctx context.Context, q execer, entry *model.AuditLog) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = db.now()

	before, err := encodeJSON(entry.Before, "{}")
	if err != nil {
		return fmt.Errorf("sqlite: encoding audit before: %w", err)
	}
	after, err := encodeJSON(entry.After, "{}")
	if err != nil {
		return fmt.Errorf("sqlite: encoding audit after: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO audit_logs (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.ResourceType, entry.ResourceID, entry.ActorID,
		before, after, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending audit %s: %w", entry.Action, err)
	}
	return nil
}

// ListAudit returns one page of entries, newest first, plus the total count.
func (db *DB) ListAudit(ctx context.Context, opts repository.ListOptions) ([]model.AuditLog, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting audit logs: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]model.AuditLog, 0, limit)
	for rows.Next() {
		var (
			e             model.AuditLog
			before, after string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.ResourceType, &e.ResourceID, &e.ActorID,
			&before, &after, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning audit row: %w", err)
		}
		if err := decodeJSON(before, &e.Before); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding audit before: %w", err)
		}
		if err := decodeJSON(after, &e.After); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding audit after: %w", err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating audit logs: %w", err)
	}
	return logs, total, nil
}
