package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
)

// AcceptDonation converts a Pending donation into a Scheduled pickup.
//
// Insert and delete run in one transaction, so a crash in between can never
// leave both records (double counting) or neither (a lost donation). The
// DELETE repeats the status check so two NGOs racing for the same donation
// cannot both win.
func (db *DB) AcceptDonation(ctx context.Context, donationID, ngoID string) (*model.Pickup, error) {
	var pickup *model.Pickup

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDonation(ctx, tx, donationID)
		if err != nil {
			return err
		}
		if d.Status != model.DonationPending {
			return apperror.Conflict("Donation has already been processed")
		}

		p := model.PickupFromDonation(d, ngoID)
		if err := db.insertPickup(ctx, tx, p); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM donations WHERE id = ? AND status = ?`,
			donationID, model.DonationPending,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting accepted donation %s: %w", donationID, err)
		}
		if err := checkAffected(res, apperror.Conflict("Donation has already been processed")); err != nil {
			return err
		}

		pickup = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pickup, nil
}

// RejectDonation deletes a Pending donation without creating a pickup.
func (db *DB) RejectDonation(ctx context.Context, donationID string) (*model.Donation, error) {
	var rejected *model.Donation

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		d, err := getDonation(ctx, tx, donationID)
		if err != nil {
			return err
		}
		if d.Status != model.DonationPending {
			return apperror.Conflict("Donation has already been processed")
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM donations WHERE id = ? AND status = ?`,
			donationID, model.DonationPending,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting rejected donation %s: %w", donationID, err)
		}
		if err := checkAffected(res, apperror.Conflict("Donation has already been processed")); err != nil {
			return err
		}

		d.Status = model.DonationRejected
		rejected = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// CompletePickup closes a Scheduled pickup. Picked and Rejected are both
// terminal, so the UPDATE is conditional on the current status and a second
// attempt reports a conflict instead of counting the items twice.
func (db *DB) CompletePickup(ctx context.Context, pickupID string, status model.PickupStatus) (*model.Pickup, error) {
	if !status.Terminal() {
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}

	var pickup *model.Pickup

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE pickups SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			status, db.now(), pickupID, model.PickupScheduled,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating pickup %s: %w", pickupID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}

		p, err := getPickup(ctx, tx, pickupID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.Conflict(fmt.Sprintf("Pickup is already %s", p.Status))
		}

		if status == model.PickupPicked {
			if _, err := db.addToCollection(ctx, tx, p.NGOID, p.ClothesType, p.Quantity); err != nil {
				return err
			}
		}

		pickup = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pickup, nil
}
