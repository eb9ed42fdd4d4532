package service

import (
	"context"
	"math"
	"time"

	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// Per-item conversion factors for the impact estimate.
const (
	co2PerItem      = 2.0    // kg
	waterPerItem    = 2000.0 // litres
	energyPerItem   = 3.6    // kWh
	landfillPerItem = 0.1    // cubic metres
	itemsPerPerson  = 5
	recyclingRate   = 85
)

type ImpactService struct {
	store repository.Store
	now   func() time.Time
}

func NewImpactService(store repository.Store) *ImpactService {
	return &ImpactService{store: store, now: time.Now}
}

// UserImpact estimates what a donor's items saved. It counts open donations
// and every pickup that was not rejected.
func (s *ImpactService) UserImpact(ctx context.Context, userID string) (*model.Impact, error) {
	donations, err := s.store.ListDonations(ctx, repository.DonationFilter{DonorID: userID})
	if err != nil {
		return nil, err
	}
	pickups, err := s.store.ListPickups(ctx, repository.PickupFilter{DonorID: userID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	monthly := make([]model.MonthValue, monthsShown)
	for i := range monthly {
		monthly[i].Label = monthStart(now, monthsShown-1-i).Month().String()[:3]
	}
	total := 0
	add := func(createdAt time.Time, qty int) {
		total += qty
		if ago := monthsAgo(now, createdAt); ago >= 0 && ago < monthsShown {
			monthly[monthsShown-1-ago].Value += qty
		}
	}

	for _, d := range donations {
		add(d.CreatedAt, d.Quantity)
	}
	for _, p := range pickups {
		if p.Status == model.PickupRejected {
			continue
		}
		add(p.CreatedAt, p.Quantity)
	}

	totals := model.ImpactTotals{
		Clothes:       total,
		Beneficiaries: int(math.Round(float64(total) / itemsPerPerson)),
		CO2Saved:      round2(float64(total) * co2PerItem),
		RecyclingRate: recyclingRate,
		WaterSaved:    round2(float64(total) * waterPerItem),
		EnergySaved:   round2(float64(total) * energyPerItem),
		LandfillSaved: round2(float64(total) * landfillPerItem),
	}

	return &model.Impact{
		MonthlyDonations: monthly,
		TotalImpact:      totals,
		Achievements:     achievements(totals),
	}, nil
}

func achievements(t model.ImpactTotals) []model.Achievement {
	return []model.Achievement{
		{Icon: "🌟", Label: "Top Donor", Unlocked: t.Clothes >= 100},
		{Icon: "🎯", Label: "50 Items", Unlocked: t.Clothes >= 50},
		{Icon: "🌱", Label: "Eco Warrior", Unlocked: t.CO2Saved >= 100},
		{Icon: "🤝", Label: "Community Hero", Unlocked: t.Beneficiaries >= 20},
		{Icon: "🌍", Label: "Global Impact", Unlocked: t.CO2Saved >= 500},
		{Icon: "⭐", Label: "Super Donor", Unlocked: t.Clothes >= 200},
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
