// Package repository defines the storage contracts the service layer depends on.
//
// The interfaces live here, away from any driver, so services can be tested
// against fakes and the concrete store (sqlite or mongo) is picked once in
// the composition root.
//
// Every "not found" is reported as apperror.ErrNotFound and every violated
// precondition (duplicate email, donation no longer pending, pickup already
// closed) as apperror.ErrConflict, whatever the driver says underneath.
package repository

import (
	"context"

	"github.com/sakif/clothconnect/internal/model"
)

// ListOptions is simple offset pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserFilter narrows ListUsers. Zero values match everything.
type UserFilter struct {
	Role  model.Role
	Limit int
}

// DonationFilter narrows ListDonations. Results are newest first.
type DonationFilter struct {
	DonorID string
	NGOID   string
	Status  model.DonationStatus
	Limit   int
}

// PickupFilter narrows ListPickups. Results are newest first.
type PickupFilter struct {
	DonorID string
	NGOID   string
	Status  model.PickupStatus
	Limit   int
}

// CollectionFilter narrows ListCollections. Results are newest first.
type CollectionFilter struct {
	NGOID string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	// GetUserByTokenHash finds the user holding the given one-time token
	// hash. Expiry is checked by the caller.
	GetUserByTokenHash(ctx context.Context, kind model.TokenKind, hash string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
}

type DonationRepository interface {
	CreateDonation(ctx context.Context, d *model.Donation) error
	GetDonation(ctx context.Context, id string) (*model.Donation, error)
	ListDonations(ctx context.Context, filter DonationFilter) ([]model.Donation, error)
	DeleteDonation(ctx context.Context, id string) error
}

type PickupRepository interface {
	CreatePickup(ctx context.Context, p *model.Pickup) error
	GetPickup(ctx context.Context, id string) (*model.Pickup, error)
	ListPickups(ctx context.Context, filter PickupFilter) ([]model.Pickup, error)
	AssignPickup(ctx context.Context, id, assignee string) (*model.Pickup, error)
}

// LifecycleRepository holds the multi-record transitions of the donation
// lifecycle. Each method is a single unit of work: either every record it
// touches changes or none does.
type LifecycleRepository interface {
	// AcceptDonation turns a Pending donation into a Scheduled pickup owned
	// by ngoID and removes the donation.
	AcceptDonation(ctx context.Context, donationID, ngoID string) (*model.Pickup, error)

	// RejectDonation removes a Pending donation and returns what it was.
	RejectDonation(ctx context.Context, donationID string) (*model.Donation, error)

	// CompletePickup moves a Scheduled pickup to status. When status is
	// Picked the pickup's quantity is added to its NGO's collection for the
	// same clothes type.
	CompletePickup(ctx context.Context, pickupID string, status model.PickupStatus) (*model.Pickup, error)
}

type CollectionRepository interface {
	// AddToCollection increments the (ngoID, clothesType) row by qty,
	// creating it with distributed=0 if it does not exist yet.
	AddToCollection(ctx context.Context, ngoID, clothesType string, qty int) (*model.Collection, error)
	GetCollection(ctx context.Context, id string) (*model.Collection, error)
	ListCollections(ctx context.Context, filter CollectionFilter) ([]model.Collection, error)

	// DistributeFromCollection records qty items leaving the collection.
	// It fails with apperror.InsufficientStock and changes nothing when
	// distributed+qty would exceed quantity. On success the returned audit
	// entry has already been persisted alongside the update.
	DistributeFromCollection(ctx context.Context, id, ngoID string, qty int) (*model.Collection, *model.AuditLog, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	// ListNotifications returns the newest unexpired notifications.
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, id, userID string) error
}

type AuditRepository interface {
	AppendAudit(ctx context.Context, entry *model.AuditLog) error
	// ListAudit returns one page of entries, newest first, and the total.
	ListAudit(ctx context.Context, opts ListOptions) ([]model.AuditLog, int, error)
}

// Store is everything a backend has to provide.
type Store interface {
	UserRepository
	DonationRepository
	PickupRepository
	LifecycleRepository
	CollectionRepository
	NotificationRepository
	AuditRepository
	Ping(ctx context.Context) error
	Close() error
}
