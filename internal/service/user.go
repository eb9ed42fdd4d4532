package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/repository"
)

// UserService covers profiles and the admin user-management endpoints.
// Every admin mutation is written to the audit log.
type UserService struct {
	users  repository.UserRepository
	audit  repository.AuditRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, audit repository.AuditRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, audit: audit, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// UpdateProfile applies the editable fields. Role, email and password have
// their own flows and are not part of model.ProfileUpdate.
func (s *UserService) UpdateProfile(ctx context.Context, user *model.User, update model.ProfileUpdate) (*model.User, error) {
	if update.Name != nil && *update.Name == "" {
		return nil, apperror.ValidationFailed("name", "Name cannot be empty")
	}
	update.Apply(user)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the caller's own account.
func (s *UserService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("user_id", id))
	return nil
}

// List returns users newest first, optionally only one role.
func (s *UserService) List(ctx context.Context, role model.Role) ([]model.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperror.ValidationFailed("role", "Invalid role")
	}
	return s.users.ListUsers(ctx, repository.UserFilter{Role: role})
}

// ChangeRole is the only path that changes a user's role.
func (s *UserService) ChangeRole(ctx context.Context, admin *model.User, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", "Invalid role")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := user.Role
	user.Role = role
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, &model.AuditLog{
		Action:       model.AuditUserRoleChanged,
		ResourceType: "User",
		ResourceID:   user.ID,
		ActorID:      admin.ID,
		Before:       map[string]any{"role": string(before)},
		After:        map[string]any{"role": string(role)},
	})
	return user, nil
}

// Delete removes another user's account.
func (s *UserService) Delete(ctx context.Context, admin *model.User, id string) error {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.record(ctx, &model.AuditLog{
		Action:       model.AuditUserDeleted,
		ResourceType: "User",
		ResourceID:   id,
		ActorID:      admin.ID,
		Before:       map[string]any{"email": user.Email, "role": string(user.Role)},
	})
	return nil
}

// BulkUpdateItem is one entry of a bulk profile update.
type BulkUpdateItem struct {
	ID string `json:"id"`
	model.ProfileUpdate
}

// BulkUpdate applies profile updates to several users and returns the
// updated records. It stops at the first failure; earlier updates stay.
func (s *UserService) BulkUpdate(ctx context.Context, admin *model.User, items []BulkUpdateItem) ([]model.User, error) {
	if len(items) == 0 {
		return nil, apperror.ValidationFailed("users", "No users to update")
	}

	updated := make([]model.User, 0, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		user, err := s.users.GetUserByID(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item.ProfileUpdate.Apply(user)
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/user: bulk updating %s: %w", item.ID, err)
		}
		updated = append(updated, *user)
		ids = append(ids, user.ID)
	}

	s.record(ctx, &model.AuditLog{
		Action:       model.AuditUsersBulkUpdated,
		ResourceType: "User",
		ActorID:      admin.ID,
		After:        map[string]any{"ids": ids},
		Details:      fmt.Sprintf("Updated %d users", len(ids)),
	})
	return updated, nil
}

// BulkDelete removes several users. Unknown ids are skipped; the count of
// removed users is returned.
func (s *UserService) BulkDelete(ctx context.Context, admin *model.User, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, apperror.ValidationFailed("userIds", "No users to delete")
	}

	deleted := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := s.users.DeleteUser(ctx, id); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return len(deleted), err
		}
		deleted = append(deleted, id)
	}

	s.record(ctx, &model.AuditLog{
		Action:       model.AuditUsersBulkDeleted,
		ResourceType: "User",
		ActorID:      admin.ID,
		Before:       map[string]any{"ids": deleted},
		Details:      fmt.Sprintf("Deleted %d users", len(deleted)),
	})
	return len(deleted), nil
}

// VerifyNGO marks an NGO account as verified by an admin.
func (s *UserService) VerifyNGO(ctx context.Context, admin *model.User, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "NGO not found"}
		}
		return nil, err
	}
	if user.Role != model.RoleNGO {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "NGO not found"}
	}

	before := user.Verified
	user.Verified = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.record(ctx, &model.AuditLog{
		Action:       model.AuditNGOVerified,
		ResourceType: "User",
		ResourceID:   user.ID,
		ActorID:      admin.ID,
		Before:       map[string]any{"verified": before},
		After:        map[string]any{"verified": true},
	})
	return user, nil
}

// record appends an audit entry. The mutation has already happened, so a
// failure here is logged rather than reported to the caller.
func (s *UserService) record(ctx context.Context, entry *model.AuditLog) {
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("writing audit log",
			slog.String("action", entry.Action),
			slog.String("resource_id", entry.ResourceID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("audit recorded",
		slog.String("action", entry.Action),
		slog.String("actor_id", entry.ActorID),
		slog.String("resource_id", entry.ResourceID),
	)
}
