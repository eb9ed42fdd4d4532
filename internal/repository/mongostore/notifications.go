package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	now := s.now()
	n.ID = xid.New().String()
	n.CreatedAt = now
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = now.Add(model.NotificationTTL)
	}
	n.ExpiresAt = n.ExpiresAt.UTC()
	if n.Type == "" {
		n.Type = model.NotifyInfo
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}

	if _, err := s.notifications.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("mongo: creating notification: %w", err)
	}
	return nil
}

// ListNotifications filters expired rows explicitly: the TTL monitor only
// runs once a minute, so expired documents can linger briefly.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	opts := options.Find().SetSort(newestFirst())
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.notifications.Find(ctx,
		bson.M{"user_id": userID, "expires_at": bson.M{"$gt": s.now()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing notifications: %w", err)
	}
	out := []model.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo: decoding notifications: %w", err)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	var n model.Notification
	err := s.notifications.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		if isNoDocuments(err) {
			return nil, apperror.NotFound("notification", id)
		}
		return nil, fmt.Errorf("mongo: marking notification %s read: %w", id, err)
	}
	return &n, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo: marking notifications read: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.CountDocuments(ctx,
		bson.M{"user_id": userID, "read": false, "expires_at": bson.M{"$gt": s.now()}})
	if err != nil {
		return 0, fmt.Errorf("mongo: counting unread notifications: %w", err)
	}
	return int(n), nil
}

func (s *Store) DeleteNotification(ctx context.Context, id, userID string) error {
	res, err := s.notifications.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo: deleting notification %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("notification", id)
	}
	return nil
}

// AppendAudit inserts an audit entry. There is no update or delete.
func (s *Store) AppendAudit(ctx context.Context, entry *model.AuditLog) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = s.now()
	if _, err := s.audit.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo: appending audit %s: %w", entry.Action, err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, opts repository.ListOptions) ([]model.AuditLog, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	total, err := s.audit.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: counting audit logs: %w", err)
	}

	cur, err := s.audit.Find(ctx, bson.M{}, options.Find().
		SetSort(newestFirst()).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("mongo: listing audit logs: %w", err)
	}
	logs := []model.AuditLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("mongo: decoding audit logs: %w", err)
	}
	return logs, int(total), nil
}
