package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const collectionColumns = `id, ngo_id, clothes_type, quantity, distributed, created_at, updated_at`

func scanCollection(s scanner) (*model.Collection, error) {
	var c model.Collection
	if err := s.Scan(&c.ID, &c.NGOID, &c.ClothesType, &c.Quantity, &c.Distributed, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.RefreshStatus()
	return &c, nil
}

// AddToCollection is the inflow path for manual "mark as donated" entries.
// Picked pickups reach the same upsert through CompletePickup.
func (db *DB) AddToCollection(ctx context.Context, ngoID, clothesType string, qty int) (*model.Collection, error) {
	var c *model.Collection
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = db.addToCollection(ctx, tx, ngoID, clothesType, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// addToCollection upserts the (ngo, clothes type) row. The increment happens
// inside SQLite, so concurrent inflows never overwrite each other.
func (db *DB) addToCollection(ctx context.Context, q execer, ngoID, clothesType string, qty int) (*model.Collection, error) {
	if qty <= 0 {
		return nil, apperror.ValidationFailed("quantity", "Quantity must be a positive number")
	}
	now := db.now()

	_, err := q.ExecContext(ctx,
		`INSERT INTO collections (id, ngo_id, clothes_type, quantity, distributed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT (ngo_id, clothes_type)
		 DO UPDATE SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at`,
		xid.New().String(), ngoID, clothesType, qty, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: adding to collection (%s, %s): %w", ngoID, clothesType, err)
	}

	c, err := scanCollection(q.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE ngo_id = ? AND clothes_type = ?`,
		ngoID, clothesType))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading collection (%s, %s): %w", ngoID, clothesType, err)
	}
	return c, nil
}

func (db *DB) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	return getCollection(ctx, db.conn, id)
}

func getCollection(ctx context.Context, q execer, id string) (*model.Collection, error) {
	c, err := scanCollection(q.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("collection", id)
		}
		return nil, fmt.Errorf("sqlite: getting collection %s: %w", id, err)
	}
	return c, nil
}

// ListCollections returns rows newest first.
func (db *DB) ListCollections(ctx context.Context, filter repository.CollectionFilter) ([]model.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections`
	var args []any
	if filter.NGOID != "" {
		query += ` WHERE ngo_id = ?`
		args = append(args, filter.NGOID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing collections: %w", err)
	}
	defer rows.Close()

	collections := []model.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning collection row: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating collections: %w", err)
	}
	return collections, nil
}

// DistributeFromCollection is the outflow path.
//
// The UPDATE carries the balance check in its WHERE clause, so the check and
// the write are one statement and a concurrent distribution cannot slip in
// between. The audit row shares the transaction: a distribution is never
// recorded without its log entry, or vice versa.
func (db *DB) DistributeFromCollection(ctx context.Context, id, ngoID string, qty int) (*model.Collection, *model.AuditLog, error) {
	if qty <= 0 {
		return nil, nil, apperror.ValidationFailed("quantity", "Quantity must be a positive number")
	}

	var (
		after *model.Collection
		entry *model.AuditLog
	)

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getCollection(ctx, tx, id)
		if err != nil {
			return err
		}
		if before.NGOID != ngoID {
			return apperror.Forbidden("Not authorized to distribute from this collection")
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE collections
			 SET distributed = distributed + ?, updated_at = ?
			 WHERE id = ? AND distributed + ? <= quantity`,
			qty, db.now(), id, qty,
		)
		if err != nil {
			return fmt.Errorf("sqlite: distributing from collection %s: %w", id, err)
		}
		if err := checkAffected(res, apperror.InsufficientStock(before.Available())); err != nil {
			return err
		}

		after, err = getCollection(ctx, tx, id)
		if err != nil {
			return err
		}

		entry = &model.AuditLog{
			Action:       model.AuditCollectionDistributed,
			ResourceType: "Collection",
			ResourceID:   id,
			ActorID:      ngoID,
			Before:       map[string]any{"distributed": before.Distributed},
			After:        map[string]any{"distributed": after.Distributed},
			Details:      fmt.Sprintf("Distributed %d %s items", qty, before.ClothesType),
		}
		return db.insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return nil, nil, err
	}
	return after, entry, nil
}
