package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/metrics"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// PickupService runs the NGO side of the lifecycle: closing pickups and
// feeding the collection ledger.
type PickupService struct {
	store    repository.Store
	notifier *NotificationService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewPickupService(store repository.Store, notifier *NotificationService, m *metrics.Metrics, logger *slog.Logger) *PickupService {
	return &PickupService{store: store, notifier: notifier, metrics: m, logger: logger}
}

// Scheduled returns the NGO's pickups that still need doing.
func (s *PickupService) Scheduled(ctx context.Context, ngoID string) ([]model.Pickup, error) {
	return s.store.ListPickups(ctx, repository.PickupFilter{NGOID: ngoID, Status: model.PickupScheduled})
}

// ForNGO returns the NGO's whole pickup history.
func (s *PickupService) ForNGO(ctx context.Context, ngoID string) ([]model.Pickup, error) {
	return s.store.ListPickups(ctx, repository.PickupFilter{NGOID: ngoID})
}

// List returns the pickups user is a party to. Admins see all of them.
func (s *PickupService) List(ctx context.Context, user *model.User) ([]model.Pickup, error) {
	switch user.Role {
	case model.RoleAdmin:
		return s.store.ListPickups(ctx, repository.PickupFilter{})
	case model.RoleNGO:
		return s.store.ListPickups(ctx, repository.PickupFilter{NGOID: user.ID})
	default:
		return s.store.ListPickups(ctx, repository.PickupFilter{DonorID: user.ID})
	}
}

// loadOwned returns the pickup if caller is its NGO or an admin.
func (s *PickupService) loadOwned(ctx context.Context, caller *model.User, id string) (*model.Pickup, error) {
	p, err := s.store.GetPickup(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.RoleAdmin && p.NGOID != caller.ID {
		return nil, apperror.Forbidden("Not authorized to update this pickup")
	}
	return p, nil
}

// Complete moves a Scheduled pickup to Picked or Rejected. Picked items are
// added to the NGO's collection in the same store operation.
func (s *PickupService) Complete(ctx context.Context, caller *model.User, id, status string) (*model.Pickup, error) {
	next := model.PickupStatus(status)
	if !next.Terminal() {
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return nil, err
	}

	p, err := s.store.CompletePickup(ctx, id, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pickup completed",
		slog.String("pickup_id", p.ID),
		slog.String("ngo_id", p.NGOID),
		slog.String("status", string(p.Status)),
		slog.Int("quantity", p.Quantity),
	)

	if next == model.PickupPicked {
		s.metrics.DonationEvent(metrics.EventPicked)
		s.metrics.ItemsCollected(p.Quantity)
		s.notifier.Notify(ctx, model.Notification{
			UserID:  p.DonorID,
			Title:   "Donation picked up",
			Message: fmt.Sprintf("Your donation %q has been picked up. Thank you!", p.Title),
			Type:    model.NotifySuccess,
			Data:    map[string]any{"pickupId": p.ID},
		}, false)
	} else {
		s.notifier.Notify(ctx, model.Notification{
			UserID:  p.DonorID,
			Title:   "Pickup cancelled",
			Message: fmt.Sprintf("The pickup for your donation %q was cancelled.", p.Title),
			Type:    model.NotifyWarning,
			Data:    map[string]any{"pickupId": p.ID},
		}, false)
	}
	return p, nil
}

// Create lets a donor ask a specific NGO for a pickup directly, skipping the
// open donation feed.
func (s *PickupService) Create(ctx context.Context, donor *model.User, in DonationInput) (*model.Pickup, error) {
	in.NGOID = strings.TrimSpace(in.NGOID)
	if in.NGOID == "" {
		return nil, apperror.ValidationFailed("ngoId", "All required fields must be filled")
	}
	qty, date, err := in.validate()
	if err != nil {
		return nil, err
	}

	ngo, err := s.store.GetUserByID(ctx, in.NGOID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("NGO", in.NGOID)
		}
		return nil, err
	}
	if ngo.Role != model.RoleNGO {
		return nil, apperror.ValidationFailed("ngoId", "Selected user is not an NGO")
	}

	p := &model.Pickup{
		DonorID:     donor.ID,
		NGOID:       ngo.ID,
		Title:       in.Title,
		ClothesType: in.ClothesType,
		Quantity:    qty,
		Address:     in.Address,
		City:        in.City,
		Pincode:     in.Pincode,
		Phone:       in.Phone,
		PickupDate:  date,
		Message:     in.Message,
		Status:      model.PickupScheduled,
	}
	if err := s.store.CreatePickup(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("pickup requested",
		slog.String("pickup_id", p.ID),
		slog.String("donor_id", donor.ID),
		slog.String("ngo_id", ngo.ID),
	)
	s.notifier.Notify(ctx, model.Notification{
		UserID:   ngo.ID,
		Title:    "New pickup request",
		Message:  fmt.Sprintf("%s requested a pickup of %d %s items in %s.", donor.Name, p.Quantity, p.ClothesType, p.City),
		Type:     model.NotifyPickup,
		Priority: model.PriorityHigh,
		Data:     map[string]any{"pickupId": p.ID},
		Action:   model.NotificationAction{Type: "link", URL: "/ngo/pickups", Text: "View pickups"},
	}, true)
	return p, nil
}

// Assign records which NGO team member handles the pickup.
func (s *PickupService) Assign(ctx context.Context, caller *model.User, id, teamMember string) (*model.Pickup, error) {
	teamMember = strings.TrimSpace(teamMember)
	if teamMember == "" {
		return nil, apperror.ValidationFailed("teamMember", "Team member is required")
	}
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.AssignPickup(ctx, id, teamMember)
}
