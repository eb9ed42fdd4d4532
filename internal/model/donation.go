package model

import "time"

// DonationStatus is the state of a pending offer.
type DonationStatus string

const (
	DonationPending  DonationStatus = "Pending"
	DonationAccepted DonationStatus = "Accepted"
	DonationRejected DonationStatus = "Rejected"
	DonationPickedUp DonationStatus = "Picked Up"
)

// Donation is a donor's offer that no NGO has claimed yet.
//
// A donation only ever lives in the Pending state: accepting it converts it
// into a Pickup and rejecting it deletes it, so a stored donation with any
// other status indicates an interrupted lifecycle step.
type Donation struct {
	ID          string         `json:"id"                db:"id"           bson:"_id"`
	DonorID     string         `json:"donorId"           db:"donor_id"     bson:"donor_id"`
	NGOID       string         `json:"ngoId,omitempty"   db:"ngo_id"       bson:"ngo_id,omitempty"`
	Title       string         `json:"title"             db:"title"        bson:"title"`
	ClothesType string         `json:"clothesType"       db:"clothes_type" bson:"clothes_type"`
	Quantity    int            `json:"quantity"          db:"quantity"     bson:"quantity"`
	Address     string         `json:"address"           db:"address"      bson:"address"`
	City        string         `json:"city"              db:"city"         bson:"city"`
	Pincode     string         `json:"pincode"           db:"pincode"      bson:"pincode"`
	Phone       string         `json:"phone"             db:"phone"        bson:"phone"`
	PickupDate  time.Time      `json:"pickupDate"        db:"pickup_date"  bson:"pickup_date"`
	Message     string         `json:"message,omitempty" db:"message"      bson:"message,omitempty"`
	Status      DonationStatus `json:"status"            db:"status"       bson:"status"`
	CreatedAt   time.Time      `json:"createdAt"         db:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt"         db:"updated_at"   bson:"updated_at"`
}

// PublicDonation is the anonymous view of a donation. Anything that could
// identify or locate the donor is left out.
type PublicDonation struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	ClothesType string         `json:"clothesType"`
	Quantity    int            `json:"quantity"`
	City        string         `json:"city"`
	Pincode     string         `json:"pincode"`
	PickupDate  time.Time      `json:"pickupDate"`
	Status      DonationStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Public strips the donor-identifying fields.
func (d Donation) Public() PublicDonation {
	return PublicDonation{
		ID:          d.ID,
		Title:       d.Title,
		ClothesType: d.ClothesType,
		Quantity:    d.Quantity,
		City:        d.City,
		Pincode:     d.Pincode,
		PickupDate:  d.PickupDate,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

// History item kinds returned by the donor's "my donations" listing.
const (
	HistoryKindDonation = "donation"
	HistoryKindPickup   = "pickup"
)

// HistoryItem is one row of a donor's history. Donations and pickups share
// most fields; Kind tells the client which one it is looking at and NGOID is
// only set for pickups.
type HistoryItem struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	DonorID     string    `json:"donorId"`
	NGOID       string    `json:"ngoId,omitempty"`
	Title       string    `json:"title"`
	ClothesType string    `json:"clothesType"`
	Quantity    int       `json:"quantity"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	Pincode     string    `json:"pincode"`
	Phone       string    `json:"phone"`
	PickupDate  time.Time `json:"pickupDate"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// History converts a donation into a history row.
func (d Donation) History() HistoryItem {
	return HistoryItem{
		Kind:        HistoryKindDonation,
		ID:          d.ID,
		DonorID:     d.DonorID,
		NGOID:       d.NGOID,
		Title:       d.Title,
		ClothesType: d.ClothesType,
		Quantity:    d.Quantity,
		Address:     d.Address,
		City:        d.City,
		Pincode:     d.Pincode,
		Phone:       d.Phone,
		PickupDate:  d.PickupDate,
		Message:     d.Message,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
	}
}
