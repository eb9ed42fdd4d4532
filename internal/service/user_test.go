package service

import (
	"context"
	"testing"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

func strPtr(s string) *string { return &s }

func auditActions(t *testing.T, env *testEnv) []string {
	t.Helper()
	logs, _, err := env.store.ListAudit(context.Background(), repository.ListOptions{Limit: 100})
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	return actions
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

	got, err := env.users.UpdateProfile(ctx, u, model.ProfileUpdate{City: strPtr("Mysuru")})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if got.City != "Mysuru" || got.Name != "Asha" {
		t.Errorf("UpdateProfile() = %+v, want only City changed", got)
	}

	_, err = env.users.UpdateProfile(ctx, u, model.ProfileUpdate{Name: strPtr("")})
	assertMessage(t, err, "Name cannot be empty")
}

func TestChangeRole_IsAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	u := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

	got, err := env.users.ChangeRole(ctx, admin, u.ID, model.RoleNGO)
	if err != nil {
		t.Fatalf("ChangeRole() error = %v", err)
	}
	if got.Role != model.RoleNGO {
		t.Errorf("Role = %q, want ngo", got.Role)
	}

	_, err = env.users.ChangeRole(ctx, admin, u.ID, "superuser")
	assertKind(t, err, apperror.ErrValidation)

	actions := auditActions(t, env)
	if len(actions) != 1 || actions[0] != model.AuditUserRoleChanged {
		t.Errorf("audit actions = %v, want one role change", actions)
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)
	env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)

	all, _ := env.users.List(ctx, "")
	ngos, _ := env.users.List(ctx, model.RoleNGO)
	if len(all) != 2 || len(ngos) != 1 {
		t.Errorf("List() = %d, List(ngo) = %d, want 2 and 1", len(all), len(ngos))
	}

	_, err := env.users.List(ctx, "bogus")
	assertKind(t, err, apperror.ErrValidation)
}

func TestDeleteAndBulkDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	a := env.createUser(t, "A", "a@example.com", model.RoleDonor)
	b := env.createUser(t, "B", "b@example.com", model.RoleDonor)
	c := env.createUser(t, "C", "c@example.com", model.RoleDonor)

	if err := env.users.Delete(ctx, admin, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	err := env.users.Delete(ctx, admin, a.ID)
	assertKind(t, err, apperror.ErrNotFound)

	n, err := env.users.BulkDelete(ctx, admin, []string{b.ID, "missing", c.ID})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if n != 2 {
		t.Errorf("BulkDelete() = %d, want 2", n)
	}

	_, err = env.users.BulkDelete(ctx, admin, nil)
	assertMessage(t, err, "No users to delete")

	remaining, _ := env.users.List(ctx, "")
	if len(remaining) != 1 {
		t.Errorf("%d users remain, want only the admin", len(remaining))
	}
}

func TestBulkUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	a := env.createUser(t, "A", "a@example.com", model.RoleDonor)
	b := env.createUser(t, "B", "b@example.com", model.RoleDonor)

	updated, err := env.users.BulkUpdate(ctx, admin, []BulkUpdateItem{
		{ID: a.ID, ProfileUpdate: model.ProfileUpdate{City: strPtr("Pune")}},
		{ID: b.ID, ProfileUpdate: model.ProfileUpdate{Phone: strPtr("12345")}},
	})
	if err != nil {
		t.Fatalf("BulkUpdate() error = %v", err)
	}
	if len(updated) != 2 || updated[0].City != "Pune" || updated[1].Phone != "12345" {
		t.Errorf("BulkUpdate() = %+v", updated)
	}

	_, err = env.users.BulkUpdate(ctx, admin, nil)
	assertMessage(t, err, "No users to update")

	_, err = env.users.BulkUpdate(ctx, admin, []BulkUpdateItem{{ID: "missing"}})
	assertKind(t, err, apperror.ErrNotFound)
}

func TestVerifyNGO(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	ngo := env.createUser(t, "Helping Hands", "ngo@example.com", model.RoleNGO)
	donor := env.createUser(t, "Asha", "asha@example.com", model.RoleDonor)

	got, err := env.users.VerifyNGO(ctx, admin, ngo.ID)
	if err != nil {
		t.Fatalf("VerifyNGO() error = %v", err)
	}
	if !got.Verified {
		t.Error("Verified = false after VerifyNGO")
	}

	for _, id := range []string{donor.ID, "missing"} {
		_, err := env.users.VerifyNGO(ctx, admin, id)
		assertKind(t, err, apperror.ErrNotFound)
		assertMessage(t, err, "NGO not found")
	}

	actions := auditActions(t, env)
	if len(actions) != 1 || actions[0] != model.AuditNGOVerified {
		t.Errorf("audit actions = %v, want one NGO verification", actions)
	}
}
