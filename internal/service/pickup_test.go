package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"slices"
	"testing"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
)

// scheduledPickup runs a donation through acceptance and returns the pickup.
func scheduledPickup(t *testing.T, env *testEnv, donor, ngo *model.User, clothesType string, n int) *model.Pickup {
	t.Helper()
	ctx := context.Background()

	d, err := env.donations.Create(ctx, donor, donationInput(clothesType, n))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	result, err := env.donations.Decide(ctx, ngo, d.ID, DecisionInput{Status: "Accepted"})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	return result.Pickup
}

// =========================================================================
// COMPLETE TESTS
// =========================================================================

func TestComplete_PickedFeedsCollection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	p := scheduledPickup(t, env, donor, ngo, "Mens", 10)

	done, err := env.pickups.Complete(ctx, ngo, p.ID, "Picked")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if done.Status != model.PickupPicked {
		t.Errorf("Status = %q, want Picked", done.Status)
	}

	rows, _ := env.collections.List(ctx, ngo.ID)
	if len(rows) != 1 || rows[0].ClothesType != "Mens" || rows[0].Quantity != 10 {
		t.Fatalf("collections = %+v, want one Mens row of 10", rows)
	}

	scheduled, _ := env.pickups.Scheduled(ctx, ngo.ID)
	if len(scheduled) != 0 {
		t.Errorf("Scheduled() = %d, want 0 after completion", len(scheduled))
	}

	// Completion is final.
	_, err = env.pickups.Complete(ctx, ngo, p.ID, "Rejected")
	assertKind(t, err, apperror.ErrConflict)
}

func TestComplete_RejectedLeavesCollectionAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	p := scheduledPickup(t, env, donor, ngo, "Mens", 10)

	if _, err := env.pickups.Complete(ctx, ngo, p.ID, "Rejected"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	rows, _ := env.collections.List(ctx, ngo.ID)
	if len(rows) != 0 {
		t.Errorf("collections = %+v, want none", rows)
	}
	notes, _ := env.notifier.List(ctx, donor.ID)
	if !slices.ContainsFunc(notes, func(n model.Notification) bool { return n.Title == "Pickup cancelled" }) {
		t.Errorf("donor notifications = %+v, want a Pickup cancelled entry", notes)
	}
}

func TestComplete_Authorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	other := env.createUser(t, "Other NGO", "other@example.com", model.RoleNGO)
	admin := env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	p := scheduledPickup(t, env, donor, ngo, "Mens", 1)

	_, err := env.pickups.Complete(ctx, other, p.ID, "Picked")
	assertKind(t, err, apperror.ErrForbidden)

	_, err = env.pickups.Complete(ctx, ngo, p.ID, "Scheduled")
	assertMessage(t, err, "Invalid status")

	if _, err := env.pickups.Complete(ctx, admin, p.ID, "Picked"); err != nil {
		t.Errorf("admin Complete() error = %v", err)
	}
}

// The end-to-end inventory story: 10 Mens items come in, 4 go out, and an
// attempt to hand out 7 more is refused with the real balance.
func TestMensScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	p := scheduledPickup(t, env, donor, ngo, "Mens", 10)
	if _, err := env.pickups.Complete(ctx, ngo, p.ID, "Picked"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	rows, _ := env.collections.List(ctx, ngo.ID)
	if len(rows) != 1 {
		t.Fatalf("got %d collection rows, want 1", len(rows))
	}

	c, err := env.collections.Distribute(ctx, ngo.ID, rows[0].ID, DistributeInput{Quantity: rawQty(4)})
	if err != nil {
		t.Fatalf("Distribute(4) error = %v", err)
	}
	if c.Distributed != 4 || c.Available() != 6 {
		t.Errorf("after distributing 4: %+v, want distributed 4 available 6", c)
	}

	_, err = env.collections.Distribute(ctx, ngo.ID, rows[0].ID, DistributeInput{Quantity: rawQty(7)})
	assertKind(t, err, apperror.ErrValidation)
	assertMessage(t, err, "Not enough items available. Available: 6")

	page, err := env.analytics.AuditLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AuditLogs() error = %v", err)
	}
	if page.Total != 1 || page.Logs[0].Action != model.AuditCollectionDistributed {
		t.Errorf("audit page = %+v, want the one distribution", page)
	}
}

// =========================================================================
// DIRECT REQUEST TESTS
// =========================================================================

func TestPickupCreate_Direct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	in := donationInput("Womens", 6)
	in.NGOID = ngo.ID
	p, err := env.pickups.Create(ctx, donor, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Status != model.PickupScheduled || p.NGOID != ngo.ID || p.DonorID != donor.ID {
		t.Errorf("Create() = %+v", p)
	}

	notes, _ := env.notifier.List(ctx, ngo.ID)
	if len(notes) != 1 || notes[0].Title != "New pickup request" || notes[0].Action.Type != "link" {
		t.Errorf("NGO notifications = %+v, want one pickup request with a link", notes)
	}
}

func TestPickupCreate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

	in := donationInput("Womens", 6)
	_, err := env.pickups.Create(ctx, donor, in)
	assertKind(t, err, apperror.ErrValidation)

	in.NGOID = "missing"
	_, err = env.pickups.Create(ctx, donor, in)
	assertKind(t, err, apperror.ErrNotFound)

	in.NGOID = donor.ID
	_, err = env.pickups.Create(ctx, donor, in)
	assertMessage(t, err, "Selected user is not an NGO")
}

func TestAssign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	p := scheduledPickup(t, env, donor, ngo, "Mens", 1)

	_, err := env.pickups.Assign(ctx, ngo, p.ID, "  ")
	assertMessage(t, err, "Team member is required")

	got, err := env.pickups.Assign(ctx, ngo, p.ID, "Ravi")
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got.AssignedTo != "Ravi" {
		t.Errorf("AssignedTo = %q, want Ravi", got.AssignedTo)
	}
}

func TestListByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	other := env.createUser(t, "Bo", "bo@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	scheduledPickup(t, env, donor, ngo, "Mens", 1)
	scheduledPickup(t, env, other, ngo, "Kids", 2)

	mine, _ := env.pickups.List(ctx, donor)
	forNGO, _ := env.pickups.List(ctx, ngo)
	if len(mine) != 1 || len(forNGO) != 2 {
		t.Errorf("donor sees %d, NGO sees %d, want 1 and 2", len(mine), len(forNGO))
	}
}

// =========================================================================
// EXPORT TESTS
// =========================================================================

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	scheduledPickup(t, env, donor, ngo, "Mens", 10)

	var buf bytes.Buffer
	if err := env.pickups.ExportCSV(ctx, ngo.ID, &buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus 1", len(records))
	}
	if records[0][0] != "title" || records[0][7] != "pickupDate" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"Winter clothes", "Mens", "10", "12 MG Road", "Bengaluru", "560001", "Scheduled", "2025-03-01T00:00:00Z"}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("column %d = %q, want %q", i, records[1][i], v)
		}
	}
}
