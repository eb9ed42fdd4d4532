package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/metrics"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// publicDonationLimit is how many donations the anonymous feed shows.
const publicDonationLimit = 50

// DonationService runs the donor side of the lifecycle and the NGO's
// accept/reject decision.
type DonationService struct {
	store    repository.Store
	notifier *NotificationService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewDonationService(store repository.Store, notifier *NotificationService, m *metrics.Metrics, logger *slog.Logger) *DonationService {
	return &DonationService{store: store, notifier: notifier, metrics: m, logger: logger}
}

// DonationInput is the body of a new donation, and of a direct pickup
// request when NGOID is set.
type DonationInput struct {
	Title       string          `json:"title"`
	ClothesType string          `json:"clothesType"`
	Quantity    json.RawMessage `json:"quantity"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	Pincode     string          `json:"pincode"`
	Phone       string          `json:"phone"`
	PickupDate  string          `json:"pickupDate"`
	Message     string          `json:"message"`
	NGOID       string          `json:"ngoId"`
}

// validate checks every mandatory field and returns the parsed quantity and
// pickup date.
func (in *DonationInput) validate() (int, time.Time, error) {
	for _, f := range []*string{&in.Title, &in.ClothesType, &in.Address, &in.City, &in.Pincode, &in.Phone, &in.PickupDate, &in.Message} {
		*f = strings.TrimSpace(*f)
	}
	if in.Title == "" || in.ClothesType == "" || in.Address == "" || in.City == "" ||
		in.Pincode == "" || in.Phone == "" || in.PickupDate == "" || len(in.Quantity) == 0 {
		return 0, time.Time{}, apperror.ValidationFailed("", "All required fields must be filled")
	}

	qty, err := ParseQuantity(in.Quantity)
	if err != nil {
		return 0, time.Time{}, err
	}
	date, err := parsePickupDate(in.PickupDate)
	if err != nil {
		return 0, time.Time{}, err
	}
	return qty, date, nil
}

// parsePickupDate accepts a full RFC 3339 timestamp or a bare date from an
// <input type="date">.
func parsePickupDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperror.ValidationFailed("pickupDate", "Invalid pickup date")
}

// Create stores a new Pending donation from donor.
func (s *DonationService) Create(ctx context.Context, donor *model.User, in DonationInput) (*model.Donation, error) {
	qty, date, err := in.validate()
	if err != nil {
		return nil, err
	}

	d := &model.Donation{
		DonorID:     donor.ID,
		Title:       in.Title,
		ClothesType: in.ClothesType,
		Quantity:    qty,
		Address:     in.Address,
		City:        in.City,
		Pincode:     in.Pincode,
		Phone:       in.Phone,
		PickupDate:  date,
		Message:     in.Message,
	}
	if err := s.store.CreateDonation(ctx, d); err != nil {
		return nil, err
	}

	s.metrics.DonationEvent(metrics.EventCreated)
	s.logger.Info("donation created",
		slog.String("donation_id", d.ID),
		slog.String("donor_id", donor.ID),
		slog.String("clothes_type", d.ClothesType),
		slog.Int("quantity", d.Quantity),
	)
	return d, nil
}

// History returns the donor's open donations and their pickups, newest
// first. Accepted donations appear as pickups because that is what they
// became.
func (s *DonationService) History(ctx context.Context, donorID string) ([]model.HistoryItem, error) {
	donations, err := s.store.ListDonations(ctx, repository.DonationFilter{DonorID: donorID})
	if err != nil {
		return nil, err
	}
	pickups, err := s.store.ListPickups(ctx, repository.PickupFilter{DonorID: donorID})
	if err != nil {
		return nil, err
	}

	items := make([]model.HistoryItem, 0, len(donations)+len(pickups))
	for _, d := range donations {
		items = append(items, d.History())
	}
	for _, p := range pickups {
		items = append(items, p.History())
	}
	slices.SortStableFunc(items, func(a, b model.HistoryItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items, nil
}

// Public returns the anonymous feed of recent donations.
func (s *DonationService) Public(ctx context.Context) ([]model.PublicDonation, error) {
	donations, err := s.store.ListDonations(ctx, repository.DonationFilter{Limit: publicDonationLimit})
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicDonation, 0, len(donations))
	for _, d := range donations {
		out = append(out, d.Public())
	}
	return out, nil
}

// List returns every donation, newest first.
func (s *DonationService) List(ctx context.Context) ([]model.Donation, error) {
	return s.store.ListDonations(ctx, repository.DonationFilter{})
}

// Pending returns every donation still waiting for an NGO.
func (s *DonationService) Pending(ctx context.Context) ([]model.Donation, error) {
	return s.store.ListDonations(ctx, repository.DonationFilter{Status: model.DonationPending})
}

type DecisionInput struct {
	Status string `json:"status"`
	NGOID  string `json:"ngoId"`
}

type DecisionResult struct {
	Message string        `json:"message"`
	Status  string        `json:"status"`
	Pickup  *model.Pickup `json:"pickup,omitempty"`
}

// Decide applies an NGO's decision on a pending donation. Accepting turns
// it into a Scheduled pickup owned by the NGO; rejecting removes it. Either
// way the donor is notified.
func (s *DonationService) Decide(ctx context.Context, ngo *model.User, donationID string, in DecisionInput) (*DecisionResult, error) {
	if in.NGOID != "" && in.NGOID != ngo.ID {
		return nil, apperror.Forbidden("Not authorized to update this donation")
	}

	switch model.DonationStatus(in.Status) {
	case model.DonationAccepted:
		p, err := s.store.AcceptDonation(ctx, donationID, ngo.ID)
		if err != nil {
			return nil, err
		}

		s.metrics.DonationEvent(metrics.EventAccepted)
		s.logger.Info("donation accepted",
			slog.String("donation_id", donationID),
			slog.String("pickup_id", p.ID),
			slog.String("ngo_id", ngo.ID),
		)
		s.notifier.Notify(ctx, model.Notification{
			UserID:   p.DonorID,
			Title:    "Donation accepted",
			Message:  fmt.Sprintf("%s accepted your donation %q. A pickup has been scheduled.", ngo.Name, p.Title),
			Type:     model.NotifyPickup,
			Priority: model.PriorityHigh,
			Data:     map[string]any{"pickupId": p.ID, "ngoId": ngo.ID},
		}, true)

		return &DecisionResult{
			Message: "Donation status updated successfully",
			Status:  string(model.DonationAccepted),
			Pickup:  p,
		}, nil

	case model.DonationRejected:
		d, err := s.store.RejectDonation(ctx, donationID)
		if err != nil {
			return nil, err
		}

		s.metrics.DonationEvent(metrics.EventRejected)
		s.logger.Info("donation rejected",
			slog.String("donation_id", donationID),
			slog.String("ngo_id", ngo.ID),
		)
		s.notifier.Notify(ctx, model.Notification{
			UserID:  d.DonorID,
			Title:   "Donation declined",
			Message: fmt.Sprintf("Your donation %q was declined by %s.", d.Title, ngo.Name),
			Type:    model.NotifyDonation,
		}, true)

		return &DecisionResult{
			Message: "Donation status updated successfully",
			Status:  string(model.DonationRejected),
		}, nil

	default:
		return nil, apperror.ValidationFailed("status", "Invalid status")
	}
}

