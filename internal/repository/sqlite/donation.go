package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const donationColumns = `id, donor_id, ngo_id, title, clothes_type, quantity, address, city, pincode,
	phone, pickup_date, message, status, created_at, updated_at`

func scanDonation(s scanner) (*model.Donation, error) {
	var d model.Donation
	err := s.Scan(
		&d.ID, &d.DonorID, &d.NGOID, &d.Title, &d.ClothesType, &d.Quantity, &d.Address, &d.City, &d.Pincode,
		&d.Phone, &d.PickupDate, &d.Message, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDonation inserts d as a new Pending donation.
func (db *DB) CreateDonation(ctx context.Context, d *model.Donation) error {
	now := db.now()
	d.ID = xid.New().String()
	d.Status = model.DonationPending
	d.PickupDate = d.PickupDate.UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DonorID, d.NGOID, d.Title, d.ClothesType, d.Quantity, d.Address, d.City, d.Pincode,
		d.Phone, d.PickupDate, d.Message, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating donation: %w", err)
	}
	return nil
}

func (db *DB) GetDonation(ctx context.Context, id string) (*model.Donation, error) {
	return getDonation(ctx, db.conn, id)
}

func getDonation(ctx context.Context, q execer, id string) (*model.Donation, error) {
	d, err := scanDonation(q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("donation", id)
		}
		return nil, fmt.Errorf("sqlite: getting donation %s: %w", id, err)
	}
	return d, nil
}

// ListDonations returns donations newest first.
func (db *DB) ListDonations(ctx context.Context, filter repository.DonationFilter) ([]model.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE 1 = 1`
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
		return nil, fmt.Errorf("sqlite: listing donations: %w", err)
	}
	defer rows.Close()

	donations := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning donation row: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating donations: %w", err)
	}
	return donations, nil
}

func (db *DB) DeleteDonation(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM donations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting donation %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("donation", id))
}
