package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const pickupColumns = `id, donor_id, ngo_id, title, clothes_type, quantity, address, city, pincode,
	phone, pickup_date, message, assigned_to, status, created_at, updated_at`

func scanPickup(s scanner) (*model.Pickup, error) {
	var p model.Pickup
	err := s.Scan(
		&p.ID, &p.DonorID, &p.NGOID, &p.Title, &p.ClothesType, &p.Quantity, &p.Address, &p.City, &p.Pincode,
		&p.Phone, &p.PickupDate, &p.Message, &p.AssignedTo, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePickup inserts p. A blank status defaults to Scheduled.
func (db *DB) CreatePickup(ctx context.Context, p *model.Pickup) error {
	return db.insertPickup(ctx, db.conn, p)
}

func (db *DB) insertPickup(ctx context.Context, q execer, p *model.Pickup) error {
	now := db.now()
	p.ID = xid.New().String()
	if p.Status == "" {
		p.Status = model.PickupScheduled
	}
	p.PickupDate = p.PickupDate.UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := q.ExecContext(ctx,
		`INSERT INTO pickups (`+pickupColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DonorID, p.NGOID, p.Title, p.ClothesType, p.Quantity, p.Address, p.City, p.Pincode,
		p.Phone, p.PickupDate, p.Message, p.AssignedTo, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating pickup: %w", err)
	}
	return nil
}

func (db *DB) GetPickup(ctx context.Context, id string) (*model.Pickup, error) {
	return getPickup(ctx, db.conn, id)
}

func getPickup(ctx context.Context, q execer, id string) (*model.Pickup, error) {
	p, err := scanPickup(q.QueryRowContext(ctx,
		`SELECT `+pickupColumns+` FROM pickups WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("pickup", id)
		}
		return nil, fmt.Errorf("sqlite: getting pickup %s: %w", id, err)
	}
	return p, nil
}

// ListPickups returns pickups newest first.
func (db *DB) ListPickups(ctx context.Context, filter repository.PickupFilter) ([]model.Pickup, error) {
	query := `SELECT ` + pickupColumns + ` FROM pickups WHERE 1 = 1`
	var args []any
	if filter.DonorID != "" {
		query += ` AND donor_id = ?`
		args = append(args, filter.DonorID)
	}
	if filter.NGOID != "" {
		query += ` AND ngo_id = ?`
		args = append(args, filter.NGOID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pickups: %w", err)
	}
	defer rows.Close()

	pickups := []model.Pickup{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning pickup row: %w", err)
		}
		pickups = append(pickups, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pickups: %w", err)
	}
	return pickups, nil
}

// AssignPickup records which team member will do the pickup.
func (db *DB) AssignPickup(ctx context.Context, id, assignee string) (*model.Pickup, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE pickups SET assigned_to = ?, updated_at = ? WHERE id = ?`,
		assignee, db.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: assigning pickup %s: %w", id, err)
	}
	if err := checkAffected(res, apperror.NotFound("pickup", id)); err != nil {
		return nil, err
	}
	return db.GetPickup(ctx, id)
}
