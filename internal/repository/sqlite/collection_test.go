package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// =========================================================================
// INFLOW TESTS
// =========================================================================

func TestAddToCollection_CreatesThenIncrements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := db.AddToCollection(ctx, "ngo1", "Mens", 10)
	if err != nil {
		t.Fatalf("AddToCollection() error = %v", err)
	}
	if c.Quantity != 10 || c.Distributed != 0 || c.Status != model.CollectionAvailable {
		t.Errorf("new row = %+v, want 10/0 Available", c)
	}

	again, err := db.AddToCollection(ctx, "ngo1", "Mens", 5)
	if err != nil {
		t.Fatalf("AddToCollection() error = %v", err)
	}
	if again.ID != c.ID {
		t.Errorf("second inflow created a new row %q, want %q", again.ID, c.ID)
	}
	if again.Quantity != 15 {
		t.Errorf("Quantity = %d, want 15", again.Quantity)
	}

	// A different NGO gets its own row for the same type.
	other, err := db.AddToCollection(ctx, "ngo2", "Mens", 1)
	if err != nil {
		t.Fatalf("AddToCollection() error = %v", err)
	}
	if other.ID == c.ID {
		t.Error("different NGOs share a collection row")
	}
}

func TestAddToCollection_RejectsNonPositive(t *testing.T) {
	db := newTestDB(t)

	for _, qty := range []int{0, -3} {
		_, err := db.AddToCollection(context.Background(), "ngo1", "Mens", qty)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("AddToCollection(%d) error = %v, want ErrValidation", qty, err)
		}
	}
}

// =========================================================================
// OUTFLOW TESTS
// =========================================================================

func TestDistribute_MensScenario(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, _ := db.AddToCollection(ctx, "ngo1", "Mens", 10)

	after, entry, err := db.DistributeFromCollection(ctx, c.ID, "ngo1", 4)
	if err != nil {
		t.Fatalf("DistributeFromCollection(4) error = %v", err)
	}
	if after.Distributed != 4 || after.Available() != 6 {
		t.Errorf("after distribute = %+v, want distributed 4, available 6", after)
	}
	if entry.Action != model.AuditCollectionDistributed {
		t.Errorf("audit Action = %q", entry.Action)
	}
	if entry.Before["distributed"] != 0 || entry.After["distributed"] != 4 {
		t.Errorf("audit before/after = %v/%v, want 0/4", entry.Before, entry.After)
	}

	_, _, err = db.DistributeFromCollection(ctx, c.ID, "ngo1", 7)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("DistributeFromCollection(7) error = %v, want ErrValidation", err)
	}
	if err.Error() != "Not enough items available. Available: 6" {
		t.Errorf("error message = %q", err.Error())
	}

	unchanged, _ := db.GetCollection(ctx, c.ID)
	if unchanged.Distributed != 4 {
		t.Errorf("failed distribute mutated row: distributed = %d, want 4", unchanged.Distributed)
	}

	logs, total, err := db.ListAudit(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Errorf("audit rows = %d (total %d), want exactly 1", len(logs), total)
	}
}

func TestDistribute_ExactBalanceDepletes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, _ := db.AddToCollection(ctx, "ngo1", "Kids", 3)

	after, _, err := db.DistributeFromCollection(ctx, c.ID, "ngo1", 3)
	if err != nil {
		t.Fatalf("DistributeFromCollection() error = %v", err)
	}
	if after.Status != model.CollectionDepleted {
		t.Errorf("Status = %q, want Depleted", after.Status)
	}
}

func TestDistribute_WrongOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, _ := db.AddToCollection(ctx, "ngo1", "Mens", 10)

	_, _, err := db.DistributeFromCollection(ctx, c.ID, "ngo2", 1)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("DistributeFromCollection() error = %v, want ErrForbidden", err)
	}
}

func TestDistribute_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, _, err := db.DistributeFromCollection(context.Background(), "missing", "ngo1", 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DistributeFromCollection() error = %v, want ErrNotFound", err)
	}
}

func TestDistribute_ConcurrentNeverOverdraws(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c, _ := db.AddToCollection(ctx, "ngo1", "Mens", 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db.DistributeFromCollection(ctx, c.ID, "ngo1", 3)
		}()
	}
	wg.Wait()

	final, err := db.GetCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}
	if final.Distributed != 9 {
		t.Errorf("Distributed = %d, want 9 (three successful 3-item distributions)", final.Distributed)
	}
	if final.Distributed > final.Quantity {
		t.Errorf("invariant broken: distributed %d > quantity %d", final.Distributed, final.Quantity)
	}
}

// =========================================================================
// AUDIT TESTS
// =========================================================================

func TestListAudit_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := db.AppendAudit(ctx, &model.AuditLog{Action: model.AuditUserRoleChanged, ResourceType: "User", ResourceID: "u", ActorID: "admin"}); err != nil {
			t.Fatalf("AppendAudit() error = %v", err)
		}
	}

	page, total, err := db.ListAudit(ctx, repository.ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 1 {
		t.Errorf("last page has %d rows, want 1", len(page))
	}
}
