package model

import "time"

// NotificationTTL is how long a notification stays visible by default.
const NotificationTTL = 30 * 24 * time.Hour

// NotificationType classifies a notification for the client's icon/colour.
type NotificationType string

const (
	NotifyDonation NotificationType = "donation"
	NotifyPickup   NotificationType = "pickup"
	NotifyDelivery NotificationType = "delivery"
	NotifySystem   NotificationType = "system"
	NotifyAlert    NotificationType = "alert"
	NotifySuccess  NotificationType = "success"
	NotifyInfo     NotificationType = "info"
	NotifyWarning  NotificationType = "warning"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyDonation, NotifyPickup, NotifyDelivery, NotifySystem,
		NotifyAlert, NotifySuccess, NotifyInfo, NotifyWarning:
		return true
	}
	return false
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NotificationAction is an optional call-to-action attached to a notification.
type NotificationAction struct {
	Type string `json:"type"           bson:"type"` // link, button or none
	URL  string `json:"url,omitempty"  bson:"url,omitempty"`
	Text string `json:"text,omitempty" bson:"text,omitempty"`
}

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string               `json:"id"        db:"id"         bson:"_id"`
	UserID    string               `json:"userId"    db:"user_id"    bson:"user_id"`
	Title     string               `json:"title"     db:"title"      bson:"title"`
	Message   string               `json:"message"   db:"message"    bson:"message"`
	Type      NotificationType     `json:"type"      db:"type"       bson:"type"`
	Priority  NotificationPriority `json:"priority"  db:"priority"   bson:"priority"`
	Read      bool                 `json:"read"      db:"is_read"    bson:"read"`
	Data      map[string]any       `json:"data"      db:"data"       bson:"data,omitempty"`
	Action    NotificationAction   `json:"action"    db:"action"     bson:"action"`
	ExpiresAt time.Time            `json:"expiresAt" db:"expires_at" bson:"expires_at"`
	CreatedAt time.Time            `json:"createdAt" db:"created_at" bson:"created_at"`
}

// Expired reports whether n should no longer be shown at time now.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}
