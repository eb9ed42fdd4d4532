package model

import "time"

// Collection status labels. They are derived from the balance, never stored.
const (
	CollectionAvailable = "Available"
	CollectionDepleted  = "Depleted"
)

// Collection is an NGO's running inventory for one clothes type.
//
// Quantity is cumulative inflow and Distributed is cumulative outflow; both
// only ever grow. The invariant 0 <= Distributed <= Quantity holds at all
// times and is enforced by the store's conditional distribute update.
type Collection struct {
	ID          string    `json:"id"          db:"id"           bson:"_id"`
	NGOID       string    `json:"ngoId"       db:"ngo_id"       bson:"ngo_id"`
	ClothesType string    `json:"clothesType" db:"clothes_type" bson:"clothes_type"`
	Quantity    int       `json:"quantity"    db:"quantity"     bson:"quantity"`
	Distributed int       `json:"distributed" db:"distributed"  bson:"distributed"`
	Status      string    `json:"status"      db:"-"            bson:"-"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"   bson:"updated_at"`
}

// Available is the balance that can still be distributed.
func (c Collection) Available() int {
	return c.Quantity - c.Distributed
}

// RefreshStatus recomputes the status label from the balance.
func (c *Collection) RefreshStatus() {
	if c.Available() > 0 {
		c.Status = CollectionAvailable
	} else {
		c.Status = CollectionDepleted
	}
}
