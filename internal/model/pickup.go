package model

import "time"

// PickupStatus is the state of a scheduled physical pickup.
type PickupStatus string

const (
	PickupScheduled PickupStatus = "Scheduled"
	PickupPicked    PickupStatus = "Picked"
	PickupRejected  PickupStatus = "Rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s PickupStatus) Terminal() bool {
	return s == PickupPicked || s == PickupRejected
}

// Pickup is the accepted counterpart of a Donation. Rows are kept after they
// reach Picked or Rejected so they double as the NGO's pickup history.
type Pickup struct {
	ID          string       `json:"id"                   db:"id"           bson:"_id"`
	DonorID     string       `json:"donorId"              db:"donor_id"     bson:"donor_id"`
	NGOID       string       `json:"ngoId"                db:"ngo_id"       bson:"ngo_id"`
	Title       string       `json:"title"                db:"title"        bson:"title"`
	ClothesType string       `json:"clothesType"          db:"clothes_type" bson:"clothes_type"`
	Quantity    int          `json:"quantity"             db:"quantity"     bson:"quantity"`
	Address     string       `json:"address"              db:"address"      bson:"address"`
	City        string       `json:"city"                 db:"city"         bson:"city"`
	Pincode     string       `json:"pincode"              db:"pincode"      bson:"pincode"`
	Phone       string       `json:"phone"                db:"phone"        bson:"phone"`
	PickupDate  time.Time    `json:"pickupDate"           db:"pickup_date"  bson:"pickup_date"`
	Message     string       `json:"message,omitempty"    db:"message"      bson:"message,omitempty"`
	AssignedTo  string       `json:"assignedTo,omitempty" db:"assigned_to"  bson:"assigned_to,omitempty"`
	Status      PickupStatus `json:"status"               db:"status"       bson:"status"`
	CreatedAt   time.Time    `json:"createdAt"            db:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt"            db:"updated_at"   bson:"updated_at"`
}

// PickupFromDonation copies every transferable field of d into a new
// Scheduled pickup owned by ngoID. ID and timestamps are left for the store.
func PickupFromDonation(d *Donation, ngoID string) *Pickup {
	return &Pickup{
		DonorID:     d.DonorID,
		NGOID:       ngoID,
		Title:       d.Title,
		ClothesType: d.ClothesType,
		Quantity:    d.Quantity,
		Address:     d.Address,
		City:        d.City,
		Pincode:     d.Pincode,
		Phone:       d.Phone,
		PickupDate:  d.PickupDate,
		Message:     d.Message,
		Status:      PickupScheduled,
	}
}

// History converts a pickup into a donor history row.
func (p Pickup) History() HistoryItem {
	return HistoryItem{
		Kind:        HistoryKindPickup,
		ID:          p.ID,
		DonorID:     p.DonorID,
		NGOID:       p.NGOID,
		Title:       p.Title,
		ClothesType: p.ClothesType,
		Quantity:    p.Quantity,
		Address:     p.Address,
		City:        p.City,
		Pincode:     p.Pincode,
		Phone:       p.Phone,
		PickupDate:  p.PickupDate,
		Message:     p.Message,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}
