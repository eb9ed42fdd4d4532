package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

const (
	monthsShown       = 6
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

// AnalyticsService builds the read-only dashboards. Records are loaded in
// full and reduced here; the data set of a single deployment is small.
type AnalyticsService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyticsService(store repository.Store, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{store: store, logger: logger, now: time.Now}
}

// monthsAgo counts calendar months between t and now: 0 for the current
// month, 1 for the previous one, and so on across year boundaries.
func monthsAgo(now, t time.Time) int {
	now, t = now.UTC(), t.UTC()
	return (now.Year()-t.Year())*12 + int(now.Month()) - int(t.Month())
}

// monthStart returns the first instant of the month that is ago months
// before now.
func monthStart(now time.Time, ago int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()-time.Month(ago), 1, 0, 0, 0, 0, time.UTC)
}

type snapshot struct {
	users       []model.User
	donations   []model.Donation
	pickups     []model.Pickup
	collections []model.Collection
}

func (s *AnalyticsService) load(ctx context.Context) (*snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if snap.users, err = s.store.ListUsers(ctx, repository.UserFilter{}); err != nil {
		return nil, err
	}
	if snap.donations, err = s.store.ListDonations(ctx, repository.DonationFilter{}); err != nil {
		return nil, err
	}
	if snap.pickups, err = s.store.ListPickups(ctx, repository.PickupFilter{}); err != nil {
		return nil, err
	}
	if snap.collections, err = s.store.ListCollections(ctx, repository.CollectionFilter{}); err != nil {
		return nil, err
	}
	return &snap, nil
}

// totalDonations counts every donation ever made that still exists in some
// form. An accepted donation lives on as its pickup.
func (snap *snapshot) totalDonations() int {
	return len(snap.donations) + len(snap.pickups)
}

// Dashboard is the admin overview.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	d := &model.Dashboard{
		Monthly:      make([]model.MonthlyStat, monthsShown),
		ClothesTypes: make(map[string]int),
	}

	// Oldest month first, the current month last.
	for i := range d.Monthly {
		d.Monthly[i].Month = monthStart(now, monthsShown-1-i).Format("2006-01")
	}
	bucket := func(t time.Time) *model.MonthlyStat {
		ago := monthsAgo(now, t)
		if ago < 0 || ago >= monthsShown {
			return nil
		}
		return &d.Monthly[monthsShown-1-ago]
	}

	for _, u := range snap.users {
		d.Users.Total++
		switch u.Role {
		case model.RoleDonor:
			d.Users.Donors++
		case model.RoleNGO:
			d.Users.NGOs++
		case model.RoleAdmin:
			d.Users.Admins++
		}
	}

	for _, dn := range snap.donations {
		d.Donations.Total++
		switch dn.Status {
		case model.DonationPending:
			d.Donations.Pending++
		case model.DonationAccepted:
			d.Donations.Accepted++
		case model.DonationRejected:
			d.Donations.Rejected++
		case model.DonationPickedUp:
			d.Donations.PickedUp++
		}
		d.ClothesTypes[dn.ClothesType] += dn.Quantity
		if m := bucket(dn.CreatedAt); m != nil {
			m.Donations++
			m.Items += dn.Quantity
		}
	}

	for _, p := range snap.pickups {
		d.Pickups.Total++
		switch p.Status {
		case model.PickupScheduled:
			d.Pickups.Scheduled++
		case model.PickupPicked:
			d.Pickups.Picked++
		case model.PickupRejected:
			d.Pickups.Rejected++
		}
		// Picked quantities already sit in a collection row.
		if p.Status == model.PickupScheduled {
			d.ClothesTypes[p.ClothesType] += p.Quantity
		}
		if m := bucket(p.CreatedAt); m != nil {
			m.Pickups++
			m.Items += p.Quantity
		}
	}

	for _, c := range snap.collections {
		d.Collections.Rows++
		d.Collections.Collected += c.Quantity
		d.Collections.Distributed += c.Distributed
		d.Collections.Available += c.Available()
		d.ClothesTypes[c.ClothesType] += c.Quantity
	}

	return d, nil
}

// AuditLogs returns one page of the audit log. page starts at 1.
func (s *AnalyticsService) AuditLogs(ctx context.Context, page, limit int) (*model.AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	logs, total, err := s.store.ListAudit(ctx, repository.ListOptions{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, err
	}
	return &model.AuditPage{
		Logs:  logs,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// MonthlyReport summarises the current calendar month.
func (s *AnalyticsService) MonthlyReport(ctx context.Context) (*model.MonthlyReport, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	start := monthStart(now, 0)
	thisMonth := func(t time.Time) bool { return !t.Before(start) }

	r := &model.MonthlyReport{
		Month:          start.Format("2006-01"),
		TotalUsers:     len(snap.users),
		TotalDonations: snap.totalDonations(),
	}
	for _, u := range snap.users {
		if u.Role == model.RoleNGO && u.Verified {
			r.ActiveNGOs++
		}
		if thisMonth(u.CreatedAt) {
			r.NewUsers++
		}
	}
	for _, d := range snap.donations {
		if thisMonth(d.CreatedAt) {
			r.NewDonations++
		}
	}
	for _, p := range snap.pickups {
		if thisMonth(p.CreatedAt) {
			r.NewDonations++
		}
		if p.Status == model.PickupPicked && thisMonth(p.UpdatedAt) {
			r.ItemsCollected += p.Quantity
		}
	}

	r.ItemsDistributed, err = s.distributedSince(ctx, start)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// distributedSince sums COLLECTION_DISTRIBUTED audit entries newer than
// since. The log is newest first, so paging stops at the first older entry.
func (s *AnalyticsService) distributedSince(ctx context.Context, since time.Time) (int, error) {
	total := 0
	for offset := 0; ; offset += maxAuditLimit {
		logs, _, err := s.store.ListAudit(ctx, repository.ListOptions{Limit: maxAuditLimit, Offset: offset})
		if err != nil {
			return 0, err
		}
		for _, entry := range logs {
			if entry.CreatedAt.Before(since) {
				return total, nil
			}
			if entry.Action == model.AuditCollectionDistributed {
				total += asInt(entry.After["distributed"]) - asInt(entry.Before["distributed"])
			}
		}
		if len(logs) < maxAuditLimit {
			return total, nil
		}
	}
}

// asInt reads a number out of a decoded audit snapshot. JSON gives float64,
// BSON gives int32 or int64, and entries built in-process hold int.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func (s *AnalyticsService) AdminStats(ctx context.Context) (*model.AdminStats, error) {
	users, err := s.store.ListUsers(ctx, repository.UserFilter{})
	if err != nil {
		return nil, err
	}
	donations, err := s.store.ListDonations(ctx, repository.DonationFilter{})
	if err != nil {
		return nil, err
	}
	pickups, err := s.store.ListPickups(ctx, repository.PickupFilter{})
	if err != nil {
		return nil, err
	}
	return &model.AdminStats{
		TotalUsers:     len(users),
		TotalDonations: len(donations) + len(pickups),
	}, nil
}

// DonationsPerDay counts donations by UTC creation day, oldest day first.
func (s *AnalyticsService) DonationsPerDay(ctx context.Context) ([]model.DayCount, error) {
	donations, err := s.store.ListDonations(ctx, repository.DonationFilter{})
	if err != nil {
		return nil, err
	}
	pickups, err := s.store.ListPickups(ctx, repository.PickupFilter{})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, d := range donations {
		counts[d.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	for _, p := range pickups {
		counts[p.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	days := make([]model.DayCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, model.DayCount{Day: day, Count: n})
	}
	slices.SortFunc(days, func(a, b model.DayCount) int {
		return cmp.Compare(a.Day, b.Day)
	})
	return days, nil
}

// NGOAnalytics is the NGO's own dashboard.
func (s *AnalyticsService) NGOAnalytics(ctx context.Context, ngoID string) (*model.NGOAnalytics, error) {
	pickups, err := s.store.ListPickups(ctx, repository.PickupFilter{NGOID: ngoID})
	if err != nil {
		return nil, err
	}
	collections, err := s.store.ListCollections(ctx, repository.CollectionFilter{NGOID: ngoID})
	if err != nil {
		return nil, err
	}

	a := &model.NGOAnalytics{TotalPickups: len(pickups)}
	for _, p := range pickups {
		switch p.Status {
		case model.PickupScheduled:
			a.ScheduledPickups++
		case model.PickupPicked:
			a.PickedPickups++
		case model.PickupRejected:
			a.RejectedPickups++
		}
	}
	for _, c := range collections {
		a.Collected += c.Quantity
		a.Distributed += c.Distributed
		a.Available += c.Available()
	}
	return a, nil
}
