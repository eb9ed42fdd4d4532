package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestDonationCreate(t *testing.T) {
	env := newTestEnv(t)
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

	in := donationInput("Mens", 0)
	in.Title = "  Winter clothes  "
	in.Quantity = json.RawMessage(`"10"`)
	in.PickupDate = "2025-03-01T10:30"

	d, err := env.donations.Create(context.Background(), donor, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if d.Status != model.DonationPending {
		t.Errorf("Status = %q, want Pending", d.Status)
	}
	if d.DonorID != donor.ID || d.Quantity != 10 || d.Title != "Winter clothes" {
		t.Errorf("Create() = %+v, want donor's 10 trimmed Winter clothes", d)
	}
	want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	if !d.PickupDate.Equal(want) {
		t.Errorf("PickupDate = %v, want %v", d.PickupDate, want)
	}
}

func TestDonationCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *DonationInput)
		message string
	}{
		{"missing title", func(in *DonationInput) { in.Title = " " }, "All required fields must be filled"},
		{"missing phone", func(in *DonationInput) { in.Phone = "" }, "All required fields must be filled"},
		{"missing quantity", func(in *DonationInput) { in.Quantity = nil }, "All required fields must be filled"},
		{"zero quantity", func(in *DonationInput) { in.Quantity = rawQty(0) }, "Quantity must be a positive number"},
		{"bad date", func(in *DonationInput) { in.PickupDate = "next tuesday" }, "Invalid pickup date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

			in := donationInput("Mens", 3)
			tt.mutate(&in)

			_, err := env.donations.Create(context.Background(), donor, in)
			assertKind(t, err, apperror.ErrValidation)
			assertMessage(t, err, tt.message)
		})
	}
}

// =========================================================================
// DECISION TESTS
// =========================================================================

func TestDecide_AcceptSchedulesPickupAndNotifiesDonor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	live := env.hub.Connect(donor.ID)
	defer env.hub.Disconnect(live)

	d, err := env.donations.Create(ctx, donor, donationInput("Mens", 10))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Accepted", NGOID: ngo.ID})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}

	if result.Message != "Donation status updated successfully" || result.Status != "Accepted" {
		t.Errorf("Decide() = %+v", result)
	}
	p := result.Pickup
	if p == nil || p.Status != model.PickupScheduled || p.NGOID != ngo.ID || p.Quantity != 10 {
		t.Fatalf("Pickup = %+v, want Scheduled 10 items for the NGO", p)
	}

	if _, err := env.store.GetDonation(ctx, d.ID); err == nil {
		t.Error("donation still exists after being accepted")
	}

	select {
	case n := <-live.C:
		if n.Title != "Donation accepted" || n.Priority != model.PriorityHigh {
			t.Errorf("live notification = %+v", n)
		}
	default:
		t.Error("donor did not receive a live notification")
	}

	stored, _ := env.notifier.List(ctx, donor.ID)
	if len(stored) != 1 {
		t.Errorf("donor has %d stored notifications, want 1", len(stored))
	}
	if mail := env.mailer.last(t); mail.To != "asha@example.com" || mail.Subject != "Donation accepted" {
		t.Errorf("mail = %+v, want acceptance mailed to the donor", mail)
	}
}

func TestDecide_Reject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	d, _ := env.donations.Create(ctx, donor, donationInput("Kids", 4))

	result, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Rejected"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if result.Pickup != nil {
		t.Errorf("rejection returned a pickup: %+v", result.Pickup)
	}

	pickups, _ := env.pickups.ForNGO(ctx, ngo.ID)
	if len(pickups) != 0 {
		t.Errorf("rejection created %d pickups", len(pickups))
	}
	history, _ := env.donations.History(ctx, donor.ID)
	if len(history) != 0 {
		t.Errorf("rejected donation still in history: %+v", history)
	}
	if mail := env.mailer.last(t); mail.Subject != "Donation declined" {
		t.Errorf("mail subject = %q, want Donation declined", mail.Subject)
	}
}

func TestDecide_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	d, _ := env.donations.Create(ctx, donor, donationInput("Mens", 1))

	_, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Accepted", NGOID: "someone-else"})
	assertKind(t, err, apperror.ErrForbidden)

	_, err = env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Picked Up"})
	assertMessage(t, err, "Invalid status")

	_, err = env.donations.Decide(ctx, ngo, "missing", DecisionInput{Status: "Accepted"})
	assertKind(t, err, apperror.ErrNotFound)

	if _, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Accepted"}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	_, err = env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Rejected"})
	if err == nil {
		t.Fatal("second decision on the same donation succeeded")
	}
}

func TestDecide_ConcurrentAcceptOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngoA := env.createUser(t, "A", "a@example.com", model.RoleNGO)
	ngoB := env.createUser(t, "B", "b@example.com", model.RoleNGO)
	d, _ := env.donations.Create(ctx, donor, donationInput("Mens", 5))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, ngo := range []*model.User{ngoA, ngoB, ngoA, ngoB} {
		wg.Add(1)
		go func(ngo *model.User) {
			defer wg.Done()
			if _, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Accepted"}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(ngo)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d accepts succeeded, want exactly 1", wins)
	}
	all, _ := env.pickups.List(ctx, &model.User{Role: model.RoleAdmin})
	if len(all) != 1 {
		t.Errorf("%d pickups exist, want 1", len(all))
	}
}

// =========================================================================
// LISTING TESTS
// =========================================================================

func TestHistory_MergesDonationsAndPickups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	first, _ := env.donations.Create(ctx, donor, donationInput("Mens", 2))
	time.Sleep(5 * time.Millisecond)
	if _, err := env.donations.Decide(ctx, ngo, first.ID, DecisionInput{Status: "Accepted"}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := env.donations.Create(ctx, donor, donationInput("Womens", 3)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	history, err := env.donations.History(ctx, donor.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() returned %d items, want 2", len(history))
	}
	if history[0].Kind != model.HistoryKindDonation || history[0].ClothesType != "Womens" {
		t.Errorf("history[0] = %+v, want the newer open donation", history[0])
	}
	if history[1].Kind != model.HistoryKindPickup || history[1].Status != "Scheduled" {
		t.Errorf("history[1] = %+v, want the scheduled pickup", history[1])
	}
}

func TestPublicAndPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	env.donations.Create(ctx, donor, donationInput("Mens", 2))
	env.donations.Create(ctx, donor, donationInput("Kids", 1))

	public, err := env.donations.Public(ctx)
	if err != nil {
		t.Fatalf("Public() error = %v", err)
	}
	if len(public) != 2 {
		t.Errorf("Public() returned %d, want 2", len(public))
	}

	pending, _ := env.donations.Pending(ctx)
	all, _ := env.donations.List(ctx)
	if len(pending) != 2 || len(all) != 2 {
		t.Errorf("Pending() = %d, List() = %d, want 2 and 2", len(pending), len(all))
	}
}
