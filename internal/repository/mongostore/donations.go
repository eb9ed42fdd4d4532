package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

func (s *Store) CreateDonation(ctx context.Context, d *model.Donation) error {
	now := s.now()
	d.ID = xid.New().String()
	d.Status = model.DonationPending
	d.PickupDate = d.PickupDate.UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.donations.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("mongo: creating donation: %w", err)
	}
	return nil
}

func (s *Store) GetDonation(ctx context.Context, id string) (*model.Donation, error) {
	var d model.Donation
	if err := s.donations.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("donation", id)
		}
		return nil, fmt.Errorf("mongo: getting donation %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) ListDonations(ctx context.Context, filter repository.DonationFilter) ([]model.Donation, error) {
	query := bson.M{}
	if filter.DonorID != "" {
		query["donor_id"] = filter.DonorID
	}
	if filter.NGOID != "" {
		query["ngo_id"] = filter.NGOID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(newestFirst())
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.donations.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing donations: %w", err)
	}
	donations := []model.Donation{}
	if err := cur.All(ctx, &donations); err != nil {
		return nil, fmt.Errorf("mongo: decoding donations: %w", err)
	}
	return donations, nil
}

func (s *Store) DeleteDonation(ctx context.Context, id string) error {
	res, err := s.donations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting donation %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("donation", id)
	}
	return nil
}

func (s *Store) CreatePickup(ctx context.Context, p *model.Pickup) error {
	now := s.now()
	p.ID = xid.New().String()
	if p.Status == "" {
		p.Status = model.PickupScheduled
	}
	p.PickupDate = p.PickupDate.UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.pickups.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("mongo: creating pickup: %w", err)
	}
	return nil
}

func (s *Store) GetPickup(ctx context.Context, id string) (*model.Pickup, error) {
	var p model.Pickup
	if err := s.pickups.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("pickup", id)
		}
		return nil, fmt.Errorf("mongo: getting pickup %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) ListPickups(ctx context.Context, filter repository.PickupFilter) ([]model.Pickup, error) {
	query := bson.M{}
	if filter.DonorID != "" {
		query["donor_id"] = filter.DonorID
	}
	if filter.NGOID != "" {
		query["ngo_id"] = filter.NGOID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(newestFirst())
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.pickups.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing pickups: %w", err)
	}
	pickups := []model.Pickup{}
	if err := cur.All(ctx, &pickups); err != nil {
		return nil, fmt.Errorf("mongo: decoding pickups: %w", err)
	}
	return pickups, nil
}

func (s *Store) AssignPickup(ctx context.Context, id, assignee string) (*model.Pickup, error) {
	var p model.Pickup
	err := s.pickups.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"assigned_to": assignee, "updated_at": s.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("pickup", id)
		}
		return nil, fmt.Errorf("mongo: assigning pickup %s: %w", id, err)
	}
	return &p, nil
}

// AcceptDonation inserts the pickup first and then deletes the donation,
// conditional on it still being Pending. If the delete does not happen the
// pickup is removed again, so an NGO that loses the race leaves no trace.
func (s *Store) AcceptDonation(ctx context.Context, donationID, ngoID string) (*model.Pickup, error) {
	d, err := s.GetDonation(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.DonationPending {
		return nil, apperror.Conflict("Donation has already been processed")
	}

	p := model.PickupFromDonation(d, ngoID)
	if err := s.CreatePickup(ctx, p); err != nil {
		return nil, err
	}

	res, err := s.donations.DeleteOne(ctx, bson.M{"_id": donationID, "status": model.DonationPending})
	if err != nil || res.DeletedCount == 0 {
		if err != nil {
			err = fmt.Errorf("mongo: deleting accepted donation %s: %w", donationID, err)
		} else {
			err = apperror.Conflict("Donation has already been processed")
		}
		_, undoErr := s.pickups.DeleteOne(ctx, bson.M{"_id": p.ID})
		return nil, withUndo(err, fmt.Sprintf("pickup %s after failed accept", p.ID), undoErr)
	}
	return p, nil
}

func (s *Store) RejectDonation(ctx context.Context, donationID string) (*model.Donation, error) {
	var d model.Donation
	err := s.donations.FindOneAndDelete(ctx, bson.M{"_id": donationID, "status": model.DonationPending}).Decode(&d)
	if err != nil {
		if isNoDocuments(err) {
			if _, getErr := s.GetDonation(ctx, donationID); getErr != nil {
				return nil, getErr
			}
			return nil, apperror.Conflict("Donation has already been processed")
		}
		return nil, fmt.Errorf("mongo: rejecting donation %s: %w", donationID, err)
	}
	d.Status = model.DonationRejected
	return &d, nil
}

// CompletePickup flips a Scheduled pickup to its final status. For Picked
// the collection increment follows; if that fails the pickup goes back to
// Scheduled so the NGO can retry.
func (s *Store) CompletePickup(ctx context.Context, pickupID string, status model.PickupStatus) (*model.Pickup, error) {
	if !status.Terminal() {
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}

	var p model.Pickup
	err := s.pickups.FindOneAndUpdate(ctx,
		bson.M{"_id": pickupID, "status": model.PickupScheduled},
		bson.M{"$set": bson.M{"status": status, "updated_at": s.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if isNoDocuments(err) {
			current, getErr := s.GetPickup(ctx, pickupID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, apperror.Conflict(fmt.Sprintf("Pickup is already %s", current.Status))
		}
		return nil, fmt.Errorf("mongo: updating pickup %s: %w", pickupID, err)
	}

	if status == model.PickupPicked {
		if _, err := s.AddToCollection(ctx, p.NGOID, p.ClothesType, p.Quantity); err != nil {
			_, undoErr := s.pickups.UpdateOne(ctx,
				bson.M{"_id": pickupID},
				bson.M{"$set": bson.M{"status": model.PickupScheduled, "updated_at": s.now()}},
			)
			return nil, withUndo(err, fmt.Sprintf("pickup %s status", pickupID), undoErr)
		}
	}
	return &p, nil
}
