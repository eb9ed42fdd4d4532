package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/notify"
	"github.com/sakif/clothconnect/internal/repository"
)

// notificationListLimit caps how many notifications a list call returns.
const notificationListLimit = 50

type NotificationService struct {
	store  repository.NotificationRepository
	users  repository.UserRepository
	hub    *notify.Hub
	mailer notify.Mailer
	logger *slog.Logger
}

func NewNotificationService(
	store repository.NotificationRepository,
	users repository.UserRepository,
	hub *notify.Hub,
	mailer notify.Mailer,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		store:  store,
		users:  users,
		hub:    hub,
		mailer: mailer,
		logger: logger,
	}
}

// Notify persists n, pushes it to the user's live connections and, when
// email is set, mails it. It never returns an error: notifications are a
// side effect and must not fail the operation that triggered them.
func (s *NotificationService) Notify(ctx context.Context, n model.Notification, email bool) {
	if err := s.store.CreateNotification(ctx, &n); err != nil {
		s.logger.Error("storing notification",
			slog.String("user_id", n.UserID),
			slog.String("title", n.Title),
			slog.String("error", err.Error()),
		)
		return
	}
	s.hub.Send(n.UserID, n)

	if !email {
		return
	}
	user, err := s.users.GetUserByID(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("notification email skipped",
			slog.String("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.mailer.Send(ctx, user.Email, n.Title, n.Message); err != nil {
		s.logger.Warn("notification email failed",
			slog.String("user_id", n.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// CreateInput is the body of a self-addressed notification.
type CreateInput struct {
	Title    string                     `json:"title"`
	Message  string                     `json:"message"`
	Type     model.NotificationType     `json:"type"`
	Priority model.NotificationPriority `json:"priority"`
	Data     map[string]any             `json:"data"`
	Action   model.NotificationAction   `json:"action"`
}

// Create stores a notification addressed to userID and pushes it live.
func (s *NotificationService) Create(ctx context.Context, userID string, in CreateInput) (*model.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" || in.Message == "" {
		return nil, apperror.ValidationFailed("title", "Title and message are required")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, apperror.ValidationFailed("type", "Invalid notification type")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, apperror.ValidationFailed("priority", "Invalid notification priority")
	}
	switch in.Action.Type {
	case "", "link", "button", "none":
	default:
		return nil, apperror.ValidationFailed("action", "Invalid action type")
	}

	n := &model.Notification{
		UserID:   userID,
		Title:    in.Title,
		Message:  in.Message,
		Type:     in.Type,
		Priority: in.Priority,
		Data:     in.Data,
		Action:   in.Action,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	s.hub.Send(userID, *n)
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, userID, notificationListLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	return s.store.MarkNotificationRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnreadNotifications(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.store.DeleteNotification(ctx, id, userID)
}
